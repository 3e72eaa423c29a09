package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"voting-api/auth"
	"voting-api/models"
	"voting-api/repository"
	"voting-api/testutil"
)

func setupAuthService(t *testing.T) (*AuthService, *auth.Tokens, repository.Store) {
	t.Helper()
	store := testutil.SetupTestStore(t)
	tokens := auth.NewTokens(testutil.TestJWTSecret, time.Hour)
	return NewAuthService(store.Users(), tokens, zap.NewNop()), tokens, store
}

func TestAuthService_Register(t *testing.T) {
	svc, tokens, store := setupAuthService(t)
	ctx := context.Background()

	token, err := svc.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)

	userID, err := tokens.Verify(token)
	require.NoError(t, err)

	user, err := store.Users().FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
	assert.NotEqual(t, "s3cret", user.PasswordHash)
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	svc, _, _ := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "different")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAuthService_RegisterMissingFields(t *testing.T) {
	svc, _, _ := setupAuthService(t)

	_, err := svc.Register(context.Background(), "", "pw")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Register(context.Background(), "alice", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAuthService_Login(t *testing.T) {
	svc, tokens, _ := setupAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)
	registeredID, err := tokens.Verify(registered)
	require.NoError(t, err)

	token, err := svc.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	userID, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, registeredID, userID)
}

func TestAuthService_LoginFailures(t *testing.T) {
	svc, _, _ := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{name: "wrong password", username: "alice", password: "guess", wantErr: ErrInvalidCredentials},
		{name: "unknown user", username: "bob", password: "s3cret", wantErr: ErrInvalidCredentials},
		{name: "password case matters", username: "alice", password: "S3CRET", wantErr: ErrInvalidCredentials},
		{name: "missing password", username: "alice", password: "", wantErr: ErrInvalidInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tc.username, tc.password)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

// raceUsers simulates a registration that slips in between the lookup and the insert
type raceUsers struct {
	repository.UserRepository
}

func (raceUsers) FindUserByUsername(context.Context, string) (*models.User, error) {
	return nil, repository.ErrUserNotFound
}

func (raceUsers) CreateUser(context.Context, *models.User) error {
	return repository.ErrUsernameTaken
}

func TestAuthService_RegisterUniqueIndexConflict(t *testing.T) {
	svc := NewAuthService(raceUsers{}, auth.NewTokens("s", time.Hour), zap.NewNop())

	_, err := svc.Register(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, ErrConflict)
}

type downUsers struct {
	repository.UserRepository
}

var errStoreDown = errors.New("store unavailable")

func (downUsers) FindUserByUsername(context.Context, string) (*models.User, error) {
	return nil, errStoreDown
}

func TestAuthService_StoreFailure(t *testing.T) {
	svc := NewAuthService(downUsers{}, auth.NewTokens("s", time.Hour), zap.NewNop())

	_, err := svc.Register(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, errStoreDown)
	assert.NotErrorIs(t, err, ErrConflict)

	_, err = svc.Login(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, errStoreDown)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
