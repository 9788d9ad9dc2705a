package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/trust-risk/pkg/common"
	"github.com/richxcame/trust-risk/pkg/validation"
)

// ValidateJSON binds the JSON body into req and validates it.
func ValidateJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return err
	}
	return validation.ValidateStruct(req)
}

// RespondWithValidationError sends a standardized validation error response
func RespondWithValidationError(c *gin.Context, err error) {
	var valErr *validation.ValidationError
	if errors.As(err, &valErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, common.Response{
			Success: false,
			Data:    gin.H{"fields": valErr.Errors},
			Error:   &common.ErrorInfo{Code: http.StatusBadRequest, Message: "validation failed"},
		})
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, common.Response{
		Success: false,
		Error:   &common.ErrorInfo{Code: http.StatusBadRequest, Message: "invalid request body"},
	})
}

// ValidateAndBind validates and binds request to the provided struct.
// It returns false after sending the error response.
func ValidateAndBind(c *gin.Context, req interface{}) bool {
	if err := ValidateJSON(c, req); err != nil {
		RespondWithValidationError(c, err)
		return false
	}
	return true
}

// MaxBodySize limits the request body size
func MaxBodySize(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil {
			c.Next()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				common.ErrorResponse(c, http.StatusRequestEntityTooLarge, "request body too large")
				c.Abort()
				return
			}
		}

		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		c.Next()
	}
}
