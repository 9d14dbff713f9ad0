package natsclient

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/spectra/config"
	"github.com/sifan077/spectra/internal/app/model"
	"go.uber.org/zap"
)

const (
	defaultConnectTimeout = 5 * time.Second
	reconnectWait         = 2 * time.Second
	// Access events published while the broker is away are buffered up to
	// this size, then publishing fails and the service logs a warning.
	reconnectBufSize    = 4 * 1024 * 1024
	defaultStreamMaxAge = 30 * 24 * time.Hour
	// Publishes carry the access log id as Nats-Msg-Id. A retry inside this
	// window is stored once.
	duplicateWindow = 2 * time.Minute
)

// Connect opens a NATS connection and its JetStream context. It reconnects
// forever and logs connection state changes on logger.
func Connect(cfg config.NATSConfig, logger *zap.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []nats.Option{
		nats.Timeout(defaultConnectTimeout),
		nats.Name("spectra"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.ReconnectBufSize(reconnectBufSize),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	conn, err := nats.Connect(URL(cfg), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("nats: connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("nats: init jetstream: %w", err)
	}
	return conn, js, nil
}

// AccessStream describes the stream holding access events. Old events are
// discarded once the stream reaches its size cap or their age passes
// stream_max_age.
func AccessStream(cfg config.NATSConfig) (*nats.StreamConfig, error) {
	maxAge := defaultStreamMaxAge
	if cfg.StreamMaxAge != "" {
		d, err := time.ParseDuration(cfg.StreamMaxAge)
		if err != nil {
			return nil, fmt.Errorf("nats: invalid stream_max_age %q: %w", cfg.StreamMaxAge, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("nats: stream_max_age must be positive, got %s", d)
		}
		maxAge = d
	}
	return &nats.StreamConfig{
		Name:       model.AccessStreamName,
		Subjects:   []string{model.AccessStreamSubject},
		Retention:  nats.LimitsPolicy,
		Discard:    nats.DiscardOld,
		Storage:    nats.FileStorage,
		MaxAge:     maxAge,
		MaxBytes:   model.AccessStreamMaxBytes,
		Duplicates: duplicateWindow,
	}, nil
}

// URL renders the server address with local defaults.
func URL(cfg config.NATSConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 4222
	}
	return fmt.Sprintf("nats://%s:%d", host, port)
}
