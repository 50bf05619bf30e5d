package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/otoscore/otoscore/internal/tracker"
	"go.uber.org/zap"
)

type Response struct {
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	// Err is the machine-readable taxonomy tag, empty on success.
	Err string `json:"err,omitempty"`
}

func Success(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Data:    data,
		Message: message,
	})
}

// Error reports a failure with an explicit status and tag, for transport
// level failures that never reach the domain core.
func Error(c *gin.Context, code int, tag tracker.Kind, message string) {
	c.JSON(code, Response{
		Code:    -1,
		Message: message,
		Err:     string(tag),
	})
}

// Fail maps a domain error to its HTTP status and tag. Internal errors are
// logged and surfaced generically so storage details never reach callers.
func Fail(c *gin.Context, err error) {
	kind := tracker.KindOf(err)
	message := err.Error()
	if kind == tracker.KindInternal {
		zap.S().Errorf("internal error: %v", err)
		message = "internal error"
	}
	c.JSON(statusOf(kind), Response{
		Code:    -1,
		Message: message,
		Err:     string(kind),
	})
}

func statusOf(kind tracker.Kind) int {
	switch kind {
	case tracker.KindValidation:
		return http.StatusUnprocessableEntity
	case tracker.KindNotFound:
		return http.StatusNotFound
	case tracker.KindExists:
		return http.StatusConflict
	case tracker.KindForbidden:
		return http.StatusForbidden
	case tracker.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
