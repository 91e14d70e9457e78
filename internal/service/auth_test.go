package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communitymapper/community-mapper/internal/domain"
	domainerrors "github.com/communitymapper/community-mapper/internal/errors"
)

var testClient = ClientInfo{IPAddress: "10.0.0.7", UserAgent: "mapper-test/1.0"}

func login(t *testing.T, env *testEnv, email string) *AuthResponse {
	t.Helper()
	resp, err := env.auth.Login(context.Background(), LoginRequest{Email: email, Password: testPassword}, testClient)
	require.NoError(t, err)
	return resp
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "usr-42", "owner@example.com")
	ctx := context.Background()

	resp := login(t, env, "  Owner@Example.com ")
	assert.Equal(t, "usr-42", resp.User.ID)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Positive(t, resp.ExpiresIn)

	sessions, err := env.sessions.ListUserSessions(ctx, "usr-42")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, resp.SessionID, sessions[0].ID)
	assert.Equal(t, "10.0.0.7", sessions[0].IPAddress)
}

func TestLogin_BadCredentialsLookAlike(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "usr-42", "owner@example.com")
	ctx := context.Background()

	_, wrongPassword := env.auth.Login(ctx, LoginRequest{Email: "owner@example.com", Password: "nope nope"}, testClient)
	requireCode(t, domainerrors.CodeInvalidCredentials, wrongPassword)

	_, unknownEmail := env.auth.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: testPassword}, testClient)
	requireCode(t, domainerrors.CodeInvalidCredentials, unknownEmail)

	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())

	_, err := env.auth.Login(ctx, LoginRequest{Email: "not-an-email", Password: testPassword}, testClient)
	requireCode(t, domainerrors.CodeValidation, err)
}

func TestLogin_RateLimitedPerIP(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "usr-42", "owner@example.com")
	ctx := context.Background()

	for range 5 {
		_, err := env.auth.Login(ctx, LoginRequest{Email: "owner@example.com", Password: "wrong pass"}, testClient)
		requireCode(t, domainerrors.CodeInvalidCredentials, err)
	}
	_, err := env.auth.Login(ctx, LoginRequest{Email: "owner@example.com", Password: testPassword}, testClient)
	requireCode(t, domainerrors.CodeRateLimited, err)

	other := ClientInfo{IPAddress: "10.0.0.8"}
	_, err = env.auth.Login(ctx, LoginRequest{Email: "owner@example.com", Password: testPassword}, other)
	require.NoError(t, err, "limits are per client address")
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "usr-42", "owner@example.com")
	ctx := context.Background()
	resp := login(t, env, "owner@example.com")

	claims, err := env.auth.Authenticate(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "usr-42", claims.UserID)
	assert.Equal(t, resp.SessionID, claims.SessionID)

	_, err = env.auth.Authenticate(ctx, "")
	requireCode(t, domainerrors.CodeUnauthorized, err)
	_, err = env.auth.Authenticate(ctx, "v4.local.forged")
	requireCode(t, domainerrors.CodeUnauthorized, err)

	require.NoError(t, env.auth.Logout(ctx, resp.SessionID))
	_, err = env.auth.Authenticate(ctx, resp.AccessToken)
	requireCode(t, domainerrors.CodeUnauthorized, err)

	require.NoError(t, env.auth.Logout(ctx, resp.SessionID), "logging out twice is a no-op")
}

func TestRefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "usr-42", "owner@example.com")
	ctx := context.Background()
	first := login(t, env, "owner@example.com")

	second, err := env.auth.Refresh(ctx, first.RefreshToken, testClient)
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, "usr-42", second.User.ID)

	_, err = env.auth.Refresh(ctx, first.RefreshToken, testClient)
	requireCode(t, domainerrors.CodeUnauthorized, err)

	_, err = env.auth.Refresh(ctx, "", testClient)
	requireCode(t, domainerrors.CodeValidation, err)

	_, err = env.auth.Authenticate(ctx, second.AccessToken)
	require.NoError(t, err)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "usr-42", "owner@example.com")
	ctx := context.Background()

	me, err := env.auth.Me(ctx, "usr-42")
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", me.Email)

	_, err = env.auth.Me(ctx, "usr-gone")
	requireCode(t, domainerrors.CodeUnauthorized, err)
}

func TestDeleteExpiredSessions(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "usr-42", "owner@example.com")
	ctx := context.Background()
	live := login(t, env, "owner@example.com")

	past := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, env.store.CreateSession(ctx, &domain.Session{
		ID: "ses-old", UserID: "usr-42", RefreshTokenHash: "stale",
		ExpiresAt: past.Add(time.Hour), CreatedAt: past, LastSeenAt: past,
	}))

	n, err := env.sessions.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = env.sessions.ValidateSession(ctx, live.SessionID)
	require.NoError(t, err)
	_, err = env.sessions.ValidateSession(ctx, "ses-old")
	requireCode(t, domainerrors.CodeUnauthorized, err)
}

func TestUserService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.users.CreateUser(ctx, CreateUserRequest{Email: "Ana@Example.com", DisplayName: "Ana", Password: "long enough"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.NotEqual(t, "long enough", user.PasswordHash)

	_, err = env.users.CreateUser(ctx, CreateUserRequest{Email: "ana@example.com", Password: "long enough"})
	requireCode(t, domainerrors.CodeAlreadyExists, err)
	_, err = env.users.CreateUser(ctx, CreateUserRequest{Email: "bruno@example.com", Password: "short"})
	requireCode(t, domainerrors.CodeValidation, err)

	found, err := env.users.GetUserByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	p := env.person(t, user.ID, "Carla")
	_, _, err = env.media.SetPhoto(ctx, user.ID, p.ID, pngUpload(t, "carla.png"))
	require.NoError(t, err)

	require.NoError(t, env.users.DeleteUser(ctx, user.ID))

	users, err := env.users.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
	items, err := env.mediaStore.List(p.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	count, err := env.index.DocumentCount()
	require.NoError(t, err)
	assert.Zero(t, count)

	err = env.users.DeleteUser(ctx, user.ID)
	requireCode(t, domainerrors.CodeNotFound, err)
}
