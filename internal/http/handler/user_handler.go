package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/spectra/internal/app/apperror"
	"github.com/sifan077/spectra/internal/app/service"
	"go.uber.org/zap"
)

// UserDeps groups dependencies required by the account API. LoginLimit is
// an optional rate limiter mounted on login.
type UserDeps struct {
	Logger     *zap.Logger
	Users      service.UserService
	Sessions   *Sessions
	LoginLimit fiber.Handler
}

// UserHandler implements login and account endpoints.
type UserHandler struct {
	logger     *zap.Logger
	users      service.UserService
	sessions   *Sessions
	loginLimit fiber.Handler
}

func NewUserHandler(deps UserDeps) *UserHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{
		logger:     logger,
		users:      deps.Users,
		sessions:   deps.Sessions,
		loginLimit: deps.LoginLimit,
	}
}

// Register wires account routes onto the /api group.
func (h *UserHandler) Register(api fiber.Router) {
	api.Post("/login", withLimit(h.loginLimit, h.Login)...)
	api.Post("/logout", h.Logout)
	api.Get("/user-info", h.Current)
	api.Get("/users", h.List)
	api.Post("/users", h.Create)
	api.Get("/user/:id", h.Get)
	api.Delete("/user/:id", h.Delete)
}

// Login handles POST /api/login
func (h *UserHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, key, err := h.users.Login(userContext(c), req.Email, req.Password)
	if err != nil {
		return err
	}
	if err := h.sessions.Set(c, key); err != nil {
		h.users.Logout(key)
		return apperror.Internal("failed to issue session").WithCause(err)
	}
	return ok(c, newUserResponse(user))
}

// Logout handles POST /api/logout. It succeeds without a session.
func (h *UserHandler) Logout(c *fiber.Ctx) error {
	actor, err := h.sessions.Actor(c)
	if err != nil {
		return err
	}
	h.users.Logout(actor.SessionKey)
	h.sessions.Clear(c)
	return ok(c, nil)
}

// Current handles GET /api/user-info
func (h *UserHandler) Current(c *fiber.Ctx) error {
	actor, err := h.sessions.Actor(c)
	if err != nil {
		return err
	}
	if actor.User == nil {
		return apperror.Unauthorized("Unauthorized")
	}
	return ok(c, newUserResponse(actor.User))
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	actor, err := h.sessions.Actor(c)
	if err != nil {
		return err
	}
	users, err := h.users.List(userContext(c), actor)
	if err != nil {
		return err
	}
	out := make([]userResponse, len(users))
	for i := range users {
		out[i] = newUserResponse(&users[i])
	}
	return ok(c, out)
}

// Create handles POST /api/users
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req createUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	actor, err := h.sessions.Actor(c)
	if err != nil {
		return err
	}
	user, err := h.users.Create(userContext(c), actor, service.CreateUserInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Avatar:      req.Avatar,
		Permissions: req.Permissions,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, newUserResponse(user))
}

// Get handles GET /api/user/:id
func (h *UserHandler) Get(c *fiber.Ctx) error {
	actor, err := h.sessions.Actor(c)
	if err != nil {
		return err
	}
	user, err := h.users.Get(userContext(c), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, newUserResponse(user))
}

// Delete handles DELETE /api/user/:id. Removing yourself also ends the session.
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	actor, err := h.sessions.Actor(c)
	if err != nil {
		return err
	}
	id := c.Params("id")
	if err := h.users.Delete(userContext(c), actor, id); err != nil {
		return err
	}
	if id == actor.UserID {
		h.users.Logout(actor.SessionKey)
		h.sessions.Clear(c)
	}
	return ok(c, nil)
}
