package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/spectra/internal/app/apperror"
	"github.com/sifan077/spectra/internal/app/model"
	"github.com/sifan077/spectra/internal/app/service"
	"github.com/sifan077/spectra/internal/buildinfo"
	"go.uber.org/zap"
)

const healthTimeout = 3 * time.Second

// HealthCheck checks one backing service.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// MiscDeps groups dependencies of the service-level endpoints. Sweeper is
// only used when Debug is set.
type MiscDeps struct {
	Logger           *zap.Logger
	Sessions         *Sessions
	Checks           []HealthCheck
	Sweeper          *service.Sweeper
	Domain           string
	TurnstileEnabled bool
	TurnstileSiteKey string
	Debug            bool
}

// MiscHandler serves about, config, health and maintenance endpoints.
type MiscHandler struct {
	logger   *zap.Logger
	sessions *Sessions
	checks   []HealthCheck
	sweeper  *service.Sweeper
	config   publicConfig
	debug    bool
}

type publicConfig struct {
	Domain           string `json:"domain"`
	TurnstileEnabled bool   `json:"turnstile_enabled"`
	TurnstileSiteKey string `json:"turnstile_site_key,omitempty"`
}

func NewMiscHandler(deps MiscDeps) *MiscHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MiscHandler{
		logger:   logger,
		sessions: deps.Sessions,
		checks:   deps.Checks,
		sweeper:  deps.Sweeper,
		config: publicConfig{
			Domain:           deps.Domain,
			TurnstileEnabled: deps.TurnstileEnabled,
			TurnstileSiteKey: deps.TurnstileSiteKey,
		},
		debug: deps.Debug,
	}
}

// Register wires the root health route and the /api service endpoints.
func (h *MiscHandler) Register(root fiber.Router, api fiber.Router) {
	root.Get("/", h.Health)
	api.Get("/health", h.Health)
	api.Get("/about", h.About)
	api.Get("/config", h.Config)
	if h.debug && h.sweeper != nil {
		api.Get("/db-refresh", h.Refresh)
	}
}

// Health reports ok when every check passes and 503 otherwise.
func (h *MiscHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(userContext(c), healthTimeout)
	defer cancel()

	status := "ok"
	checks := make(map[string]string, len(h.checks))
	for _, hc := range h.checks {
		if err := hc.Check(ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("check", hc.Name), zap.Error(err))
			checks[hc.Name] = err.Error()
			status = "degraded"
			continue
		}
		checks[hc.Name] = "ok"
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(envelope{Success: code == fiber.StatusOK, Payload: fiber.Map{
		"service": "spectra",
		"status":  status,
		"checks":  checks,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}})
}

func (h *MiscHandler) About(c *fiber.Ctx) error {
	return ok(c, buildinfo.Get())
}

// Config exposes the settings the web client needs.
func (h *MiscHandler) Config(c *fiber.Ctx) error {
	return ok(c, h.config)
}

// Refresh runs one sweep on demand. Debug builds only, Manage required.
func (h *MiscHandler) Refresh(c *fiber.Ctx) error {
	actor, err := h.sessions.Actor(c)
	if err != nil {
		return err
	}
	if !actor.Authenticated() {
		return apperror.Unauthorized("Unauthorized")
	}
	if !actor.Can(model.PermManage) {
		return apperror.Forbidden("Forbidden")
	}
	res, err := h.sweeper.Refresh(userContext(c))
	if err != nil {
		return err
	}
	return ok(c, res)
}
