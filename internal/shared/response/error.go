package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/taskboard/server/internal/shared/errors"
)

// Error sends an error body with the given status, code and message.
func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, apperrors.ErrorResponse{
		Error: apperrors.ErrorDetail{Code: code, Message: message},
	})
}

// BadRequest sends a 400 Bad Request response.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "unauthorized"
	}
	Error(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// InternalError sends a 500 Internal Server Error response.
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
}

// HandleError writes err as a JSON error body.
// Application errors keep their code and message; anything else is reported
// as an opaque internal error.
func HandleError(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok || appErr.StatusCode >= http.StatusInternalServerError {
		_ = c.Error(err)
		InternalError(c)
		return
	}
	c.JSON(appErr.StatusCode, appErr.ToResponse())
}
