package model

import "time"

// TokenTTL bounds the lifetime of every session token.
const TokenTTL = 10 * time.Minute

// Token is an in-memory session entry. Temporary tokens are single-use
// upload grants for guests.
type Token struct {
	UserID    string
	ExpiresAt time.Time
	Temporary bool
}

func NewToken(userID string, temporary bool, now time.Time) Token {
	return Token{UserID: userID, ExpiresAt: now.Add(TokenTTL), Temporary: temporary}
}

func (t Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
