package server

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/spectra/config"
	"github.com/sifan077/spectra/internal/app/service"
	inthttp "github.com/sifan077/spectra/internal/http/handler"
	"github.com/sifan077/spectra/internal/http/middleware"
	httpUtil "github.com/sifan077/spectra/internal/http/util"
	"github.com/sifan077/spectra/internal/infra/database"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const bodyLimit = 1 << 30

// Dependencies bundles what the HTTP server needs. Postgres, Redis and
// Metrics are optional.
type Dependencies struct {
	Logger   *zap.Logger
	Config   *config.Config
	DB       *gorm.DB
	Postgres *pgxpool.Pool
	Redis    *redis.Client
	Items    service.ItemService
	Users    service.UserService
	Sweeper  *service.Sweeper
	Cookies  *httpUtil.CookieCodec
	Metrics  middleware.RequestObserver
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates the HTTP server and registers every route.
func New(deps Dependencies) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	app := fiber.New(fiber.Config{
		AppName:               "spectra",
		BodyLimit:             bodyLimit,
		ErrorHandler:          inthttp.ErrorHandler(deps.Logger),
		ProxyHeader:           deps.Config.Server.ProxyHeader,
		DisableStartupMessage: true,
	})

	s := &Server{
		app:  app,
		deps: deps,
	}
	if err := s.registerRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// App exposes the Fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() error {
	cfg := s.deps.Config
	log := s.deps.Logger

	s.app.Use(middleware.RequestID(), middleware.Recovery(log), middleware.Logger(log))
	if s.deps.Metrics != nil {
		s.app.Use(middleware.Metrics(s.deps.Metrics))
	}

	loginLimit, createLimit, err := s.rateLimiters()
	if err != nil {
		return err
	}

	secure := strings.HasPrefix(cfg.Server.Domain, "https://")
	sessions := inthttp.NewSessions(s.deps.Users, s.deps.Cookies, secure)
	api := s.app.Group("/api", middleware.CORS(cfg.Server.Domain))

	inthttp.NewUserHandler(inthttp.UserDeps{
		Logger:     log,
		Users:      s.deps.Users,
		Sessions:   sessions,
		LoginLimit: loginLimit,
	}).Register(api)
	inthttp.NewItemHandler(inthttp.ItemDeps{
		Logger:      log,
		Items:       s.deps.Items,
		Sessions:    sessions,
		CreateLimit: createLimit,
	}).Register(api)
	inthttp.NewMiscHandler(inthttp.MiscDeps{
		Logger:           log,
		Sessions:         sessions,
		Checks:           s.healthChecks(),
		Sweeper:          s.deps.Sweeper,
		Domain:           cfg.Server.Domain,
		TurnstileEnabled: cfg.Turnstile.Enabled,
		TurnstileSiteKey: cfg.Turnstile.SiteKey,
		Debug:            cfg.Server.Debug,
	}).Register(s.app, api)

	// Catch-all item route goes last so it never shadows /api.
	inthttp.NewPageHandler(inthttp.PageDeps{
		Logger:   log,
		Items:    s.deps.Items,
		Sessions: sessions,
	}).Register(s.app)
	return nil
}

func (s *Server) rateLimiters() (login, create fiber.Handler, err error) {
	if s.deps.Redis == nil {
		return nil, nil, nil
	}
	loginCfg, err := middleware.NewRateLimitConfig(s.deps.Config.RateLimit, "spectra:ratelimit:login")
	if err != nil {
		return nil, nil, err
	}
	createCfg := loginCfg
	createCfg.KeyPrefix = "spectra:ratelimit:item"
	return middleware.RateLimit(s.deps.Redis, loginCfg, s.deps.Logger),
		middleware.RateLimit(s.deps.Redis, createCfg, s.deps.Logger),
		nil
}

func (s *Server) healthChecks() []inthttp.HealthCheck {
	var checks []inthttp.HealthCheck
	if s.deps.DB != nil {
		db := s.deps.DB
		checks = append(checks, inthttp.HealthCheck{
			Name:  "database",
			Check: func(ctx context.Context) error { return database.Ping(ctx, db) },
		})
	}
	if s.deps.Postgres != nil {
		checks = append(checks, inthttp.HealthCheck{Name: "postgres", Check: s.deps.Postgres.Ping})
	}
	if s.deps.Redis != nil {
		rdb := s.deps.Redis
		checks = append(checks, inthttp.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	return checks
}
