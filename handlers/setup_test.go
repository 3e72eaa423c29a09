package handlers

import (
	"testing"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"voting-api/auth"
	"voting-api/models"
	"voting-api/repository"
	"voting-api/service"
	"voting-api/testutil"
)

type testEnv struct {
	router *gin.Engine
	store  repository.Store
	tokens *auth.Tokens
}

// SetupTestEnvironment sets up the Gin router backed by a fresh SQLite store.
func SetupTestEnvironment(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	l := zap.NewNop()
	store := testutil.SetupTestStore(t)
	tokens := auth.NewTokens(testutil.TestJWTSecret, time.Hour)

	authHandler := NewAuthHandler(service.NewAuthService(store.Users(), tokens, l), l)
	pollHandler := NewPollHandler(service.NewPollService(store.Polls(), store.Users(), nil, l), l)
	healthHandler := NewHealthHandler(store, "test", l)

	router := gin.New()
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	router.Use(cors.New(config))

	router.GET("/", healthHandler.Root)
	api := router.Group("/api")
	{
		api.GET("/health", healthHandler.HealthCheck)
		api.GET("/status", healthHandler.SystemStatus)

		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)

		requireAuth := RequireAuth(tokens, l)
		api.POST("/polls", requireAuth, pollHandler.CreatePoll)
		api.GET("/polls", pollHandler.ListPolls)
		api.GET("/polls/:id", pollHandler.GetPoll)
		api.POST("/polls/:id/vote", requireAuth, pollHandler.Vote)
	}

	return &testEnv{router: router, store: store, tokens: tokens}
}

// register creates an account through the API and returns its token
func (e *testEnv) register(t *testing.T, username, password string) string {
	t.Helper()
	w := testutil.MakeRequest(t, e.router, "POST", "/api/auth/register",
		CredentialsInput{Username: username, Password: password}, "")
	require.Equal(t, 201, w.Code, w.Body.String())

	var resp TokenResponse
	testutil.DecodeJSON(t, w, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// createPoll creates a poll through the API
func (e *testEnv) createPoll(t *testing.T, token, question string, options ...string) models.Poll {
	t.Helper()
	w := testutil.MakeRequest(t, e.router, "POST", "/api/polls",
		CreatePollInput{Question: question, Options: options}, token)
	require.Equal(t, 201, w.Code, w.Body.String())

	var poll models.Poll
	testutil.DecodeJSON(t, w, &poll)
	return poll
}
