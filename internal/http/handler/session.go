package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/spectra/internal/app/model"
	"github.com/sifan077/spectra/internal/app/service"
	httpUtil "github.com/sifan077/spectra/internal/http/util"
)

// Sessions maps the token cookie to a service actor.
type Sessions struct {
	users  service.UserService
	codec  *httpUtil.CookieCodec
	secure bool
}

// NewSessions returns a resolver. secure adds the Secure attribute to the cookie.
func NewSessions(users service.UserService, codec *httpUtil.CookieCodec, secure bool) *Sessions {
	return &Sessions{users: users, codec: codec, secure: secure}
}

// Actor returns the caller. A missing, tampered or expired cookie yields an
// anonymous actor.
func (s *Sessions) Actor(c *fiber.Ctx) (*service.Actor, error) {
	key, err := s.codec.Decode(c.Cookies(httpUtil.SessionCookieName))
	if err != nil {
		return service.Anonymous(), nil
	}
	return s.users.ActorFor(userContext(c), key)
}

// Set stores sessionKey in the token cookie.
func (s *Sessions) Set(c *fiber.Ctx, sessionKey string) error {
	value, err := s.codec.Encode(sessionKey)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     httpUtil.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(model.TokenTTL / time.Second),
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

// Clear expires the token cookie.
func (s *Sessions) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     httpUtil.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
