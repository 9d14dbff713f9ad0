package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sifan077/spectra/config"
	appmodel "github.com/sifan077/spectra/internal/app/model"
	apprepository "github.com/sifan077/spectra/internal/app/repository"
	appserver "github.com/sifan077/spectra/internal/app/server"
	appservice "github.com/sifan077/spectra/internal/app/service"
	"github.com/sifan077/spectra/internal/app/session"
	"github.com/sifan077/spectra/internal/http/middleware"
	httpUtil "github.com/sifan077/spectra/internal/http/util"
	"github.com/sifan077/spectra/internal/infra/database"
	"github.com/sifan077/spectra/internal/infra/filestore"
	"github.com/sifan077/spectra/internal/infra/logger"
	infraNATS "github.com/sifan077/spectra/internal/infra/nats"
	infraPrometheus "github.com/sifan077/spectra/internal/infra/prometheus"
	infraRedis "github.com/sifan077/spectra/internal/infra/redis"
	"github.com/sifan077/spectra/internal/infra/turnstile"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

func serve(args []string) error {
	fs := newFlagSet("serve")
	configPath := fs.StringP("config", "c", "", "path to config.yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log, err := logger.Init(logger.Config{
		Development: cfg.Log.Development,
		Level:       cfg.Log.Level,
		Encoding:    cfg.Log.Encoding,
		Service:     "spectra",
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Configuration loaded successfully",
		zap.String("addr", cfg.Addr()),
		zap.String("domain", cfg.Server.Domain),
		zap.String("database_driver", cfg.Database.Driver),
		zap.Bool("turnstile", cfg.Turnstile.Enabled),
		zap.Bool("redis", cfg.Redis.Enabled),
		zap.Bool("nats", cfg.NATS.Enabled),
		zap.Bool("prometheus", cfg.Prometheus.Enabled),
	)

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("access underlying SQL DB: %w", err)
	}
	defer sqlDB.Close()
	log.Info("Database ready", zap.String("driver", cfg.Database.Driver))

	var pool *pgxpool.Pool
	if cfg.Database.Driver == "postgres" {
		if pool, err = database.NewPool(ctx, cfg.Database.Postgres); err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
	}

	files, err := filestore.New(cfg.FilesDir())
	if err != nil {
		return err
	}
	cookieKey, err := cfg.CookieKeyBytes()
	if err != nil {
		return err
	}
	cookies, err := httpUtil.NewCookieCodec(cookieKey)
	if err != nil {
		return err
	}

	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = infraRedis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, rate limiting disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			log.Info("Connected to Redis successfully", zap.String("addr", infraRedis.Addr(cfg.Redis)))
		}
	}

	var sink appservice.AccessSink
	if cfg.NATS.Enabled {
		stream, err := infraNATS.AccessStream(cfg.NATS)
		if err != nil {
			return err
		}
		natsConn, js, err := infraNATS.Connect(cfg.NATS, log.Named("nats"))
		if err != nil {
			return err
		}
		defer func() { _ = natsConn.Drain() }()
		publisher := appservice.NewAccessPublisher(js, stream)
		if err := publisher.EnsureStream(); err != nil {
			return err
		}
		sink = publisher
		log.Info("Connected to NATS successfully", zap.String("url", infraNATS.URL(cfg.NATS)))
	}

	var (
		accessObs  appservice.AccessObserver
		sweepObs   appservice.SweepObserver
		requestObs middleware.RequestObserver
	)
	if cfg.Prometheus.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := infraPrometheus.NewMetrics(reg)
		accessObs, sweepObs, requestObs = metrics, metrics, metrics

		promServer := infraPrometheus.NewServer(cfg.Prometheus, reg)
		go func() {
			log.Info("Starting Prometheus metrics server", zap.String("addr", promServer.Addr))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	}

	itemRepo := apprepository.NewItemRepository(db)
	paths := appservice.NewPathIndex()
	existing, err := itemRepo.Paths(ctx)
	if err != nil {
		return fmt.Errorf("seed path index: %w", err)
	}
	paths.Seed(existing)

	sessions := session.NewStore()
	items := appservice.NewItemService(appservice.ItemDeps{
		Logger:   log.Named("items"),
		Items:    itemRepo,
		Logs:     apprepository.NewAccessLogRepository(db),
		Files:    files,
		Sessions: sessions,
		Verifier: turnstile.New(cfg.Turnstile, nil),
		Sink:     sink,
		Observer: accessObs,
		Paths:    paths,
	})
	users := appservice.NewUserService(appservice.UserDeps{
		Logger:   log.Named("users"),
		Users:    apprepository.NewUserRepository(db),
		Sessions: sessions,
	})
	if password, created, err := users.EnsureRoot(ctx, defaultRootEmail); err != nil {
		return err
	} else if created {
		fmt.Fprintf(os.Stdout, "created root account %s with password: %s\n", defaultRootEmail, password)
	}

	sweeper := appservice.NewSweeper(appservice.SweeperDeps{
		Logger:   log.Named("sweeper"),
		Items:    itemRepo,
		Files:    files,
		Sessions: sessions,
		Observer: sweepObs,
	})
	if _, err := sweeper.Refresh(ctx); err != nil {
		log.Warn("Initial refresh failed", zap.Error(err))
	}
	if err := sweeper.Start(cfg.Server.RefreshCron); err != nil {
		return err
	}
	defer func() { <-sweeper.Stop().Done() }()

	server, err := appserver.New(appserver.Dependencies{
		Logger:   log,
		Config:   cfg,
		DB:       db,
		Postgres: pool,
		Redis:    redisClient,
		Items:    items,
		Users:    users,
		Sweeper:  sweeper,
		Cookies:  cookies,
		Metrics:  requestObs,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.Addr()))
		errCh <- server.Listen(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("fiber server exited: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(ctx, db, &appmodel.Item{}, &appmodel.User{}, &appmodel.AccessLog{}); err != nil {
		return nil, fmt.Errorf("run database migrations: %w", err)
	}
	return db, nil
}
