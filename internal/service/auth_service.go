package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/cache"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/middleware"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/repository"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SessionTTL is the lifetime of a session token.
const SessionTTL = 7 * 24 * time.Hour

// ErrInvalidCredentials is returned by Login for an unknown email or wrong password.
var ErrInvalidCredentials = models.NewUnauthorizedError("Invalid credentials")

type AuthService struct {
	profiles repository.ProfileRepository
	store    *cache.Store
	secret   string
	now      func() time.Time
}

type SignupInput struct {
	Email    string
	Password string
	FullName string
}

// AuthResult is returned by Signup and Login.
type AuthResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   *models.Profile `json:"profile"`
}

func NewAuthService(profiles repository.ProfileRepository, store *cache.Store, secret string) *AuthService {
	return &AuthService{profiles: profiles, store: store, secret: secret, now: time.Now}
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	fullName := strings.TrimSpace(in.FullName)

	if email == "" || in.Password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateFullName(fullName); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	profile := &models.Profile{
		Email:    email,
		Password: string(hashed),
		FullName: fullName,
		Role:     models.RoleUser,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, err
	}
	return s.issue(profile)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(profile)
}

// Logout blacklists the token's jti until the token would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *middleware.SessionClaims) error {
	client := s.store.Client()
	if client == nil || claims == nil || claims.JTI == "" {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return client.Set(ctx, cache.BlacklistKey(claims.JTI), "1", ttl).Err()
}

// IsRevoked reports whether the jti was logged out. Redis failures fail open.
func (s *AuthService) IsRevoked(ctx context.Context, jti string) bool {
	client := s.store.Client()
	if client == nil || jti == "" {
		return false
	}
	n, err := client.Exists(ctx, cache.BlacklistKey(jti)).Result()
	return err == nil && n > 0
}

// Authenticate validates a bearer token and rejects revoked ones.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*middleware.SessionClaims, error) {
	claims, err := middleware.ParseSessionToken(s.secret, token)
	if err != nil {
		return nil, err
	}
	if s.IsRevoked(ctx, claims.JTI) {
		return nil, middleware.ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) issue(profile *models.Profile) (*AuthResult, error) {
	token, expiresAt, err := s.GenerateToken(profile.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, Profile: profile}, nil
}

// GenerateToken signs a session token for userID.
func (s *AuthService) GenerateToken(userID uint) (string, time.Time, error) {
	if s.secret == "" {
		return "", time.Time{}, fmt.Errorf("JWT secret not configured")
	}

	now := s.now()
	expiresAt := now.Add(SessionTTL)
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": middleware.TokenIssuer,
		"aud": middleware.TokenAudience,
		"exp": expiresAt.Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, time.Unix(expiresAt.Unix(), 0), nil
}
