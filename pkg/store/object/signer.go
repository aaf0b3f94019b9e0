package object

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// URLSigner mints and verifies presigned URLs for backends that have no
// native presigning (memory and filesystem). URLs point at the API's blob
// endpoint and carry an HS256 token naming the storage key.
type URLSigner struct {
	secret  []byte
	baseURL string
	now     func() time.Time
}

// blobClaims is the token payload.
type blobClaims struct {
	Key string `json:"key"`
	jwt.RegisteredClaims
}

// BlobPath is the URL path prefix served by the API for signed blob reads.
const BlobPath = "/blobs/"

// NewURLSigner creates a signer. baseURL is the externally reachable API
// origin, e.g. "http://localhost:8080".
func NewURLSigner(secret, baseURL string) (*URLSigner, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}
	return &URLSigner{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}, nil
}

// Sign returns a URL granting read access to key for ttl.
func (s *URLSigner) Sign(key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	if ttl <= 0 {
		return "", fmt.Errorf("presign ttl must be positive, got %s", ttl)
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, blobClaims{
		Key: key,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign blob token: %w", err)
	}

	return s.baseURL + BlobPath + signed, nil
}

// Verify checks a token taken from a blob URL and returns the storage key.
func (s *URLSigner) Verify(token string) (string, error) {
	var claims blobClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("token expired: %w", ErrInvalidToken)
		}
		return "", fmt.Errorf("%v: %w", err, ErrInvalidToken)
	}
	if claims.Key == "" {
		return "", fmt.Errorf("token without key: %w", ErrInvalidToken)
	}
	return claims.Key, nil
}
