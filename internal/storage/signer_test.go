package storage

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenFrom(t *testing.T, signed string) (string, string) {
	t.Helper()
	u, err := url.Parse(signed)
	require.NoError(t, err)
	return strings.TrimPrefix(u.Path, SignedURLPrefix), u.Query().Get("token")
}

func TestSigner_RoundTrip(t *testing.T) {
	t.Parallel()
	s := NewSigner("storage-secret")

	signed, expiresAt, err := s.SignedURL("abc.pdf", "Q3 report.pdf", 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed, "/api/storage/files/abc.pdf?token="))
	assert.WithinDuration(t, time.Now().Add(DefaultSignedURLTTL), expiresAt, 2*time.Second)

	p, token := tokenFrom(t, signed)
	obj, err := s.Verify(token, p)
	require.NoError(t, err)
	assert.Equal(t, "abc.pdf", obj.Path)
	assert.Equal(t, "Q3 report.pdf", obj.FileName)
}

func TestSigner_BoundToPath(t *testing.T) {
	t.Parallel()
	s := NewSigner("storage-secret")
	signed, _, err := s.SignedURL("abc.pdf", "a.pdf", time.Minute)
	require.NoError(t, err)

	_, token := tokenFrom(t, signed)
	_, err = s.Verify(token, "other.pdf")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestSigner_Expires(t *testing.T) {
	t.Parallel()
	now := time.Now()
	s := NewSigner("storage-secret")
	s.now = func() time.Time { return now }

	signed, _, err := s.SignedURL("abc.pdf", "a.pdf", 60*time.Second)
	require.NoError(t, err)
	p, token := tokenFrom(t, signed)

	s.now = func() time.Time { return now.Add(59 * time.Second) }
	_, err = s.Verify(token, p)
	assert.NoError(t, err)

	s.now = func() time.Time { return now.Add(61 * time.Second) }
	_, err = s.Verify(token, p)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestSigner_WrongSecretAndPath(t *testing.T) {
	t.Parallel()
	signed, _, err := NewSigner("one").SignedURL("abc.pdf", "a.pdf", time.Minute)
	require.NoError(t, err)
	p, token := tokenFrom(t, signed)

	_, err = NewSigner("two").Verify(token, p)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, _, err = NewSigner("one").SignedURL("../etc/passwd", "x", time.Minute)
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestSigner_EscapesPathSegments(t *testing.T) {
	t.Parallel()
	s := NewSigner("secret")
	u, _, err := s.SignedURL("previews/a#b.webp", "a.png", time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, SignedURLPrefix+"previews/a%23b.webp?token="), u)
}
