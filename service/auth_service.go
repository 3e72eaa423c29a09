package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"voting-api/auth"
	"voting-api/models"
	"voting-api/repository"
)

// TokenIssuer signs a token for a user ID
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// AuthService 用户注册和登录
type AuthService struct {
	users  repository.UserRepository
	tokens TokenIssuer
	l      *zap.Logger
}

func NewAuthService(users repository.UserRepository, tokens TokenIssuer, l *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		l:      l,
	}
}

// Register 注册新用户并返回令牌
func (s *AuthService) Register(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", ErrInvalidInput
	}

	_, err := s.users.FindUserByUsername(ctx, username)
	switch {
	case err == nil:
		return "", ErrConflict
	case !errors.Is(err, repository.ErrUserNotFound):
		return "", fmt.Errorf("service: lookup user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("service: %w", err)
	}

	user := &models.User{Username: username, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// a concurrent registration won the unique index
		if errors.Is(err, repository.ErrUsernameTaken) {
			return "", ErrConflict
		}
		return "", fmt.Errorf("service: create user: %w", err)
	}
	s.l.Info("user registered", zap.String("user_id", user.ID), zap.String("username", username))

	return s.issue(user.ID)
}

// Login 校验用户名和密码并返回令牌
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", ErrInvalidInput
	}

	user, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("service: lookup user: %w", err)
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return "", fmt.Errorf("service: %w", err)
	}
	if !ok {
		s.l.Debug("password mismatch", zap.String("username", username))
		return "", ErrInvalidCredentials
	}

	return s.issue(user.ID)
}

func (s *AuthService) issue(userID string) (string, error) {
	token, err := s.tokens.Issue(userID)
	if err != nil {
		return "", fmt.Errorf("service: %w", err)
	}
	return token, nil
}
