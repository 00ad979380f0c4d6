package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func signToken(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func baseClaims(userID uint, exp time.Duration) jwt.MapClaims {
	return jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": TokenIssuer,
		"aud": TokenAudience,
		"exp": time.Now().Add(exp).Unix(),
		"jti": "1700000000-abcd1234",
	}
}

func TestParseSessionToken(t *testing.T) {
	t.Parallel()

	wrongIssuer := baseClaims(7, time.Hour)
	wrongIssuer["iss"] = "someone-else"
	wrongAudience := baseClaims(7, time.Hour)
	wrongAudience["aud"] = "other-client"
	badSubject := baseClaims(7, time.Hour)
	badSubject["sub"] = "abc"

	tests := []struct {
		name    string
		token   string
		wantErr error
		wantID  uint
	}{
		{"Happy Path", signToken(t, baseClaims(7, time.Hour), jwt.SigningMethodHS256, []byte(testSecret)), nil, 7},
		{"Expired", signToken(t, baseClaims(7, -time.Hour), jwt.SigningMethodHS256, []byte(testSecret)), ErrInvalidToken, 0},
		{"Wrong Secret", signToken(t, baseClaims(7, time.Hour), jwt.SigningMethodHS256, []byte("other")), ErrInvalidToken, 0},
		{"Wrong Issuer", signToken(t, wrongIssuer, jwt.SigningMethodHS256, []byte(testSecret)), ErrInvalidIssuer, 0},
		{"Wrong Audience", signToken(t, wrongAudience, jwt.SigningMethodHS256, []byte(testSecret)), ErrInvalidAudience, 0},
		{"Bad Subject", signToken(t, badSubject, jwt.SigningMethodHS256, []byte(testSecret)), ErrInvalidSubject, 0},
		{"Malformed", "malformed.token.here", ErrInvalidToken, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ParseSessionToken(testSecret, tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, claims.UserID)
			assert.Equal(t, "1700000000-abcd1234", claims.JTI)
			assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
		})
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(BearerToken(c))
	})

	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"Basic dXNlcjpwYXNz", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		buf := make([]byte, 64)
		n, _ := resp.Body.Read(buf)
		assert.Equal(t, tt.want, string(buf[:n]), tt.header)
	}
}
