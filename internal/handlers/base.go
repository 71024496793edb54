package handlers

import (
	"errors"
	"ideaboard/internal/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

var statusByKind = map[types.ErrorKind]int{
	types.KindValidation:     http.StatusBadRequest,
	types.KindNotFound:       http.StatusNotFound,
	types.KindConflict:       http.StatusConflict,
	types.KindRateLimit:      http.StatusForbidden,
	types.KindAuthentication: http.StatusUnauthorized,
}

// respondError writes classified errors as {"error": message}. Anything else is
// handed to middleware.ErrorHandler, which logs it and answers 500.
func respondError(c *gin.Context, err error) {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		if status, ok := statusByKind[appErr.Kind]; ok {
			c.AbortWithStatusJSON(status, gin.H{"error": appErr.Message})
			return
		}
	}

	_ = c.Error(err)
	c.Abort()
}

// bindOptionalJSON decodes the body into obj, an empty body leaves obj untouched
func bindOptionalJSON(c *gin.Context, obj any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return types.Validation("Invalid JSON body")
	}
	return nil
}
