package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voting-api/testutil"
)

func TestRegister(t *testing.T) {
	env := SetupTestEnvironment(t)

	token := env.register(t, "alice", "s3cret")

	userID, err := env.tokens.Verify(token)
	require.NoError(t, err)
	assert.NotEmpty(t, userID)
}

func TestRegister_Duplicate(t *testing.T) {
	env := SetupTestEnvironment(t)
	env.register(t, "alice", "s3cret")

	w := testutil.MakeRequest(t, env.router, "POST", "/api/auth/register",
		CredentialsInput{Username: "alice", Password: "other"}, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	testutil.DecodeJSON(t, w, &resp)
	assert.Equal(t, "User already exists", resp.Message)
}

func TestRegister_InvalidInput(t *testing.T) {
	env := SetupTestEnvironment(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{name: "missing password", body: CredentialsInput{Username: "alice"}},
		{name: "missing username", body: CredentialsInput{Password: "pw"}},
		{name: "empty body", body: nil},
		{name: "malformed json", body: `{"username":`},
		{name: "wrong types", body: `{"username": 1, "password": true}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := testutil.MakeRequest(t, env.router, "POST", "/api/auth/register", tc.body, "")

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp ErrorResponse
			testutil.DecodeJSON(t, w, &resp)
			assert.Equal(t, "Username and password are required", resp.Message)
		})
	}
}

func TestLogin(t *testing.T) {
	env := SetupTestEnvironment(t)
	registered := env.register(t, "alice", "s3cret")

	w := testutil.MakeRequest(t, env.router, "POST", "/api/auth/login",
		CredentialsInput{Username: "alice", Password: "s3cret"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp TokenResponse
	testutil.DecodeJSON(t, w, &resp)

	wantID, err := env.tokens.Verify(registered)
	require.NoError(t, err)
	gotID, err := env.tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, wantID, gotID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := SetupTestEnvironment(t)
	env.register(t, "alice", "s3cret")

	for _, input := range []CredentialsInput{
		{Username: "alice", Password: "wrong"},
		{Username: "nobody", Password: "s3cret"},
	} {
		w := testutil.MakeRequest(t, env.router, "POST", "/api/auth/login", input, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp ErrorResponse
		testutil.DecodeJSON(t, w, &resp)
		assert.Equal(t, "Invalid credentials", resp.Message)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	env := SetupTestEnvironment(t)

	w := testutil.MakeRequest(t, env.router, "POST", "/api/auth/login", CredentialsInput{Username: "alice"}, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	testutil.DecodeJSON(t, w, &resp)
	assert.Equal(t, "Username and password are required", resp.Message)
}

func TestRegister_LongPassword(t *testing.T) {
	env := SetupTestEnvironment(t)
	long := strings.Repeat("p", 80)

	token := env.register(t, "alice", long)
	assert.NotEmpty(t, token)

	w := testutil.MakeRequest(t, env.router, "POST", "/api/auth/login",
		CredentialsInput{Username: "alice", Password: long}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// differs only after byte 72
	w = testutil.MakeRequest(t, env.router, "POST", "/api/auth/login",
		CredentialsInput{Username: "alice", Password: strings.Repeat("p", 79) + "q"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	testutil.DecodeJSON(t, w, &resp)
	assert.Equal(t, "Invalid credentials", resp.Message)
}
