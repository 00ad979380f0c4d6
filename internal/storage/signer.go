package storage

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSignedURLTTL is how long a download link stays valid.
const DefaultSignedURLTTL = 60 * time.Second

// SignedURLPrefix is the route that serves signed objects.
const SignedURLPrefix = "/api/storage/" + BucketName + "/"

var ErrInvalidSignature = errors.New("invalid or expired signed url")

type objectClaims struct {
	Bucket   string `json:"bkt"`
	Path     string `json:"path"`
	FileName string `json:"fn,omitempty"`
	jwt.RegisteredClaims
}

// SignedObject is what a verified token grants access to.
type SignedObject struct {
	Path      string
	FileName  string
	ExpiresAt time.Time
}

// Signer issues and verifies HMAC-signed, time-limited object URLs.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// SignedURL returns a relative URL granting read access to objectPath until the returned time.
func (s *Signer) SignedURL(objectPath, fileName string, ttl time.Duration) (string, time.Time, error) {
	if !ValidObjectPath(objectPath) {
		return "", time.Time{}, ErrInvalidPath
	}
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}

	now := s.now()
	expiresAt := now.Add(ttl)
	claims := objectClaims{
		Bucket:   BucketName,
		Path:     objectPath,
		FileName: fileName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return SignedURLPrefix + escapePath(objectPath) + "?token=" + url.QueryEscape(token), expiresAt, nil
}

func escapePath(objectPath string) string {
	segments := strings.Split(objectPath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// Verify checks the token's signature, expiry and bucket, and that it was
// issued for objectPath.
func (s *Signer) Verify(token, objectPath string) (*SignedObject, error) {
	var claims objectClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSignature
	}
	if claims.Bucket != BucketName || claims.Path != objectPath {
		return nil, ErrInvalidSignature
	}

	return &SignedObject{
		Path:      claims.Path,
		FileName:  claims.FileName,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
