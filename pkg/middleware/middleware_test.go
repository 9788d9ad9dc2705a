package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	dto "github.com/prometheus/client_model/go"
	"github.com/richxcame/trust-risk/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	return r
}

func TestCorrelationID_PropagatesHeaderToRequestContext(t *testing.T) {
	r := newRouter(CorrelationID())
	var fromCtx, fromGin string
	r.GET("/x", func(c *gin.Context) {
		fromCtx = logger.CorrelationID(c.Request.Context())
		fromGin = GetCorrelationID(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(CorrelationIDHeader, "req-abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-abc", fromCtx)
	assert.Equal(t, "req-abc", fromGin)
	assert.Equal(t, "req-abc", w.Header().Get(CorrelationIDHeader))
}

func TestCorrelationID_GeneratesWhenMissing(t *testing.T) {
	r := newRouter(CorrelationID())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Len(t, w.Header().Get(CorrelationIDHeader), 36)
}

type bindTarget struct {
	UserID string `json:"user_id" validate:"required,record_id"`
}

func TestValidateAndBind(t *testing.T) {
	r := newRouter()
	r.POST("/x", func(c *gin.Context) {
		var req bindTarget
		if !ValidateAndBind(c, &req) {
			return
		}
		c.JSON(http.StatusOK, req)
	})

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantMsg  string
	}{
		{"valid", `{"user_id":"12"}`, http.StatusOK, ""},
		{"invalid id", `{"user_id":"abc"}`, http.StatusBadRequest, "validation failed"},
		{"malformed json", `{"user_id":`, http.StatusBadRequest, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantMsg != "" {
				var resp map[string]interface{}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.False(t, resp["success"].(bool))
				assert.Equal(t, tt.wantMsg, resp["error"].(map[string]interface{})["message"])
			}
		})
	}
}

func TestMaxBodySize(t *testing.T) {
	r := newRouter(MaxBodySize(8))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("0123")))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecovery(t *testing.T) {
	r := newRouter(Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	before := panicCount(t, "/boom")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
	assert.Equal(t, before+1, panicCount(t, "/boom"))
}

func panicCount(t *testing.T, route string) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, httpPanicsTotal.WithLabelValues(route).Write(m))
	return m.GetCounter().GetValue()
}

func TestRecovery_KeepsWrittenStatus(t *testing.T) {
	r := newRouter(Recovery())
	r.GET("/partial", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("after write")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/partial", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "partial", w.Body.String())
}

func TestRecovery_ReraisesAbortHandler(t *testing.T) {
	r := newRouter(Recovery())
	r.GET("/abort", func(c *gin.Context) { panic(http.ErrAbortHandler) })

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/abort", nil))
	})
}

func TestSecurityHeadersAndMetrics(t *testing.T) {
	r := newRouter(SecurityHeaders(), Metrics("risk-engine"), RequestLogger("/healthz"))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestRequestTimeout(t *testing.T) {
	r := newRouter()
	r.GET("/fast", RequestTimeout(time.Second), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/slow", RequestTimeout(20*time.Millisecond), func(c *gin.Context) {
		time.Sleep(200 * time.Millisecond)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
