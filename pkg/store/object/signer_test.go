package object

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLSigner_SignVerify(t *testing.T) {
	signer, err := NewURLSigner("secret", "http://localhost:8080/")
	require.NoError(t, err)

	url, err := signer.Sign("alice/docs/report.pdf", time.Hour)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "http://localhost:8080/blobs/"))

	token := strings.TrimPrefix(url, "http://localhost:8080/blobs/")
	key, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice/docs/report.pdf", key)
}

func TestURLSigner_Expired(t *testing.T) {
	signer, err := NewURLSigner("secret", "http://drive")
	require.NoError(t, err)

	issued := time.Now().Add(-2 * time.Hour)
	signer.now = func() time.Time { return issued }
	url, err := signer.Sign("k", time.Minute)
	require.NoError(t, err)

	signer.now = time.Now
	_, err = signer.Verify(strings.TrimPrefix(url, "http://drive/blobs/"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestURLSigner_WrongSecret(t *testing.T) {
	a, _ := NewURLSigner("a", "http://drive")
	b, _ := NewURLSigner("b", "http://drive")

	url, err := a.Sign("k", time.Minute)
	require.NoError(t, err)

	_, err = b.Verify(strings.TrimPrefix(url, "http://drive/blobs/"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestURLSigner_Validation(t *testing.T) {
	_, err := NewURLSigner("", "http://drive")
	assert.Error(t, err)

	signer, _ := NewURLSigner("s", "http://drive")
	_, err = signer.Sign("", time.Minute)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = signer.Sign("k", 0)
	assert.Error(t, err)
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "a/b.txt", NormalizeKey("  /a/b.txt/ "))
	assert.Equal(t, "", NormalizeKey("///"))
}
