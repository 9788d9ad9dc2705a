package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/richxcame/trust-risk/pkg/common"
	"github.com/richxcame/trust-risk/pkg/logger"
	"go.uber.org/zap"
)

var httpPanicsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_handler_panics_total",
		Help: "Handler panics recovered, by route",
	},
	[]string{"route"},
)

// Recovery turns a handler panic into a 500 and counts it per route.
// http.ErrAbortHandler is re-raised so net/http drops the connection.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			httpPanicsTotal.WithLabelValues(route).Inc()

			logger.WithContext(c.Request.Context()).Error("handler panicked",
				zap.Any("panic", rec),
				zap.String("route", route),
				zap.String("method", c.Request.Method),
				zap.Stack("stack"),
			)

			// Headers already went out; the status can no longer change.
			if c.Writer.Written() {
				c.Abort()
				return
			}
			common.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
			c.Abort()
		}()

		c.Next()
	}
}
