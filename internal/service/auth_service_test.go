package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/cache"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/middleware"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strongPassword = "Sup3r-Secret-Pass"

func newAuthWithRedis(t *testing.T, f *fixture) (*miniredis.Miniredis, *AuthService) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := cache.NewClient(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	store := cache.NewStore(client)
	return mr, NewAuthService(repository.NewProfileRepository(f.db, store), store, "test-secret")
}

func TestAuthService_SignupValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   SignupInput
	}{
		{name: "missing email", in: SignupInput{Password: strongPassword}},
		{name: "bad email", in: SignupInput{Email: "nope", Password: strongPassword}},
		{name: "weak password", in: SignupInput{Email: "a@example.com", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Signup(ctx, tt.in)
			assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
		})
	}

	res, err := f.auth.Signup(ctx, SignupInput{Email: " New@Example.com ", Password: strongPassword, FullName: "New Person"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "new@example.com", res.Profile.Email)
	assert.Equal(t, models.RoleUser, res.Profile.Role)

	_, err = f.auth.Signup(ctx, SignupInput{Email: "new@example.com", Password: strongPassword})
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))
}

func TestAuthService_LoginRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signup, err := f.auth.Signup(ctx, SignupInput{Email: "a@example.com", Password: strongPassword})
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, "a@example.com", "wrong")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	_, err = f.auth.Login(ctx, "missing@example.com", strongPassword)
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	res, err := f.auth.Login(ctx, "A@example.com", strongPassword)
	require.NoError(t, err)
	assert.Equal(t, signup.Profile.ID, res.Profile.ID)
	assert.WithinDuration(t, time.Now().Add(SessionTTL), res.ExpiresAt, time.Minute)

	claims, err := f.auth.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Profile.ID, claims.UserID)
	assert.NotEmpty(t, claims.JTI)

	_, err = f.auth.Authenticate(ctx, res.Token+"x")
	assert.Error(t, err)
}

func TestAuthService_LogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mr, auth := newAuthWithRedis(t, f)

	res, err := auth.Signup(ctx, SignupInput{Email: "a@example.com", Password: strongPassword})
	require.NoError(t, err)
	claims, err := auth.Authenticate(ctx, res.Token)
	require.NoError(t, err)

	require.NoError(t, auth.Logout(ctx, claims))
	assert.True(t, mr.Exists(cache.BlacklistKey(claims.JTI)))
	assert.Greater(t, mr.TTL(cache.BlacklistKey(claims.JTI)), time.Duration(0))

	_, err = auth.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, middleware.ErrInvalidToken)

	other, err := auth.Login(ctx, "a@example.com", strongPassword)
	require.NoError(t, err)
	_, err = auth.Authenticate(ctx, other.Token)
	assert.NoError(t, err)
}

func TestAuthService_GenerateTokenNeedsSecret(t *testing.T) {
	f := newFixture(t)
	_, _, err := NewAuthService(f.profiles, cache.NewStore(nil), "").GenerateToken(1)
	assert.Error(t, err)
}
