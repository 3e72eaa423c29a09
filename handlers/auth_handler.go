package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthService is the account functionality the auth routes need
type AuthService interface {
	Register(ctx context.Context, username, password string) (string, error)
	Login(ctx context.Context, username, password string) (string, error)
}

// CredentialsInput 注册和登录的请求体
type CredentialsInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse 注册和登录的响应体
type TokenResponse struct {
	Token string `json:"token"`
}

// AuthHandler 处理注册和登录
type AuthHandler struct {
	auth AuthService
	l    *zap.Logger
}

func NewAuthHandler(auth AuthService, l *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, l: l}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var input CredentialsInput
	if err := bindJSON(c, &input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: msgAuthInputRequired})
		return
	}

	token, err := h.auth.Register(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		respondError(c, h.l, err, msgAuthInputRequired)
		return
	}
	c.JSON(http.StatusCreated, TokenResponse{Token: token})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var input CredentialsInput
	if err := bindJSON(c, &input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: msgAuthInputRequired})
		return
	}

	token, err := h.auth.Login(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		respondError(c, h.l, err, msgAuthInputRequired)
		return
	}
	c.JSON(http.StatusOK, TokenResponse{Token: token})
}
