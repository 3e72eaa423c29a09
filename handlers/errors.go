package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voting-api/auth"
	"voting-api/service"
)

const (
	msgUserExists         = "User already exists"
	msgInvalidCredentials = "Invalid credentials"
	msgPollInputRequired  = "Question and at least 2 options are required"
	msgAuthInputRequired  = "Username and password are required"
	msgInvalidBody        = "Invalid request body"
	msgPollNotFound       = "Poll not found"
	msgOptionNotFound     = "Option not found"
	msgNoToken            = "No token provided"
	msgUnauthorized       = "Unauthorized"
	msgServerError        = "Server error"
)

// ErrorResponse 错误响应体
type ErrorResponse struct {
	Message string `json:"message"`
}

// respondError 把领域错误映射为HTTP状态码和消息。
// invalidInput is the message used for service.ErrInvalidInput on this route.
func respondError(c *gin.Context, l *zap.Logger, err error, invalidInput string) {
	status, message := http.StatusInternalServerError, msgServerError

	switch {
	case errors.Is(err, service.ErrConflict):
		status, message = http.StatusBadRequest, msgUserExists
	case errors.Is(err, service.ErrInvalidCredentials):
		status, message = http.StatusBadRequest, msgInvalidCredentials
	case errors.Is(err, service.ErrInvalidInput):
		status, message = http.StatusBadRequest, invalidInput
	case errors.Is(err, service.ErrPollNotFound):
		status, message = http.StatusNotFound, msgPollNotFound
	case errors.Is(err, service.ErrOptionNotFound):
		status, message = http.StatusNotFound, msgOptionNotFound
	case errors.Is(err, auth.ErrMissingToken):
		status, message = http.StatusForbidden, msgNoToken
	case errors.Is(err, auth.ErrInvalidToken):
		status, message = http.StatusUnauthorized, msgUnauthorized
	default:
		l.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Message: message})
}

// bindJSON decodes the request body into v. An empty body leaves v untouched.
func bindJSON(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
