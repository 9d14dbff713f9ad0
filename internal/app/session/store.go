// Package session holds login and temporary upload tokens in memory.
package session

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/gorilla/securecookie"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sifan077/spectra/internal/app/model"
)

const keyBytes = 32

var ErrKeyGeneration = errors.New("session: failed to generate key")

// Store maps opaque session keys to tokens. Entries expire after model.TokenTTL.
type Store struct {
	cache *gocache.Cache
	now   func() time.Time
}

// NewStore returns an empty store. Expired entries are evicted by Sweep.
func NewStore() *Store {
	return &Store{
		cache: gocache.New(model.TokenTTL, gocache.NoExpiration),
		now:   time.Now,
	}
}

// Issue creates a token for userID and returns its key.
func (s *Store) Issue(userID string, temporary bool) (string, error) {
	raw := securecookie.GenerateRandomKey(keyBytes)
	if raw == nil {
		return "", ErrKeyGeneration
	}
	key := base64.RawURLEncoding.EncodeToString(raw)
	tok := model.NewToken(userID, temporary, s.now())
	s.cache.Set(key, tok, tok.ExpiresAt.Sub(s.now()))
	return key, nil
}

// Lookup returns the live token stored under key.
func (s *Store) Lookup(key string) (model.Token, bool) {
	if key == "" {
		return model.Token{}, false
	}
	v, ok := s.cache.Get(key)
	if !ok {
		return model.Token{}, false
	}
	tok := v.(model.Token)
	if tok.Expired(s.now()) {
		s.cache.Delete(key)
		return model.Token{}, false
	}
	return tok, true
}

// Remove drops key. Unknown keys are ignored.
func (s *Store) Remove(key string) {
	s.cache.Delete(key)
}

// Sweep evicts expired entries and returns how many remain.
func (s *Store) Sweep() int {
	s.cache.DeleteExpired()
	return s.cache.ItemCount()
}
