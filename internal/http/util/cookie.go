package util

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/gorilla/securecookie"
	"github.com/sifan077/spectra/internal/app/model"
)

// SessionCookieName is the cookie carrying the encoded session key.
const SessionCookieName = "token"

const minKeyLength = 64

var (
	ErrInvalidCookie = errors.New("invalid or expired cookie")
	ErrShortKey      = fmt.Errorf("cookie key must be at least %d bytes", minKeyLength)
)

// CookieCodec signs and encrypts session keys for the token cookie.
type CookieCodec struct {
	sc *securecookie.SecureCookie
}

// NewCookieCodec derives the signing key from the first 64 bytes of key and
// the AES-256 key from its SHA-256 digest.
func NewCookieCodec(key []byte) (*CookieCodec, error) {
	if len(key) < minKeyLength {
		return nil, ErrShortKey
	}
	blockKey := sha256.Sum256(key)
	sc := securecookie.New(key[:minKeyLength], blockKey[:])
	sc.MaxAge(int(model.TokenTTL.Seconds()))
	return &CookieCodec{sc: sc}, nil
}

// Encode returns the cookie value for sessionKey.
func (c *CookieCodec) Encode(sessionKey string) (string, error) {
	return c.sc.Encode(SessionCookieName, sessionKey)
}

// Decode returns the session key stored in value.
func (c *CookieCodec) Decode(value string) (string, error) {
	if value == "" {
		return "", ErrInvalidCookie
	}
	var key string
	if err := c.sc.Decode(SessionCookieName, value, &key); err != nil {
		return "", ErrInvalidCookie
	}
	return key, nil
}
