package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const internalErrorMessage = "Internal server error"

// Recovery turns a panic into a 500. Outside production the body carries the
// panic value and the stack instead of the generic message.
func Recovery(production bool) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		writeInternalError(c, fmt.Errorf("panic: %v", recovered), string(debug.Stack()), production)
	})
}

// ErrorHandler answers requests that a handler aborted with c.Error and no body.
// No stack is attached here, the error was raised in a frame that has already returned.
func ErrorHandler(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		writeInternalError(c, c.Errors.Last().Err, "", production)
	}
}

func writeInternalError(c *gin.Context, err error, stack string, production bool) {
	fields := logrus.Fields{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"request_id": c.GetString(RequestIDKey),
	}
	if stack != "" {
		fields["stack"] = stack
	}
	logrus.WithFields(fields).WithError(err).Error("Unhandled error")

	if production {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": internalErrorMessage})
		return
	}

	body := gin.H{"error": err.Error()}
	if stack != "" {
		body["stack"] = stack
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}
