// Package auth issues and verifies HMAC-signed session tokens. A token is
// base64url(userID "\n" expiryUnix) "." base64url(HMAC-SHA256 of the first
// part), keyed by the server secret. No key rotation; rotating the secret
// invalidates all outstanding tokens.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidToken covers malformed tokens and bad signatures.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned for well-signed tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
)

// DefaultTTL is how long minted tokens stay valid.
const DefaultTTL = 24 * time.Hour

// Signer mints and verifies session tokens with a single shared secret.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner builds a Signer. A non-positive ttl falls back to DefaultTTL.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Mint issues a token for userID valid for the signer's TTL.
func (s *Signer) Mint(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("mint token: empty user id")
	}
	exp := s.now().Add(s.ttl).Unix()
	payload := base64.RawURLEncoding.EncodeToString(
		[]byte(userID + "\n" + strconv.FormatInt(exp, 10)),
	)
	return payload + "." + s.sign(payload), nil
}

// Verify checks the token's signature and expiry and returns the user id.
func (s *Signer) Verify(token string) (string, error) {
	payload, sig, ok := strings.Cut(token, ".")
	if !ok || payload == "" || sig == "" {
		return "", ErrInvalidToken
	}
	if !hmac.Equal([]byte(sig), []byte(s.sign(payload))) {
		return "", ErrInvalidToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", ErrInvalidToken
	}
	userID, expStr, ok := strings.Cut(string(raw), "\n")
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return "", ErrInvalidToken
	}
	if s.now().Unix() > exp {
		return "", ErrTokenExpired
	}
	return userID, nil
}

func (s *Signer) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
