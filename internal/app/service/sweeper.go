package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sifan077/spectra/config"
	"github.com/sifan077/spectra/internal/app/model"
	"github.com/sifan077/spectra/internal/app/repository"
	"go.uber.org/zap"
)

const (
	tokenSweepSchedule = "@every 30m"
	refreshTimeout     = 2 * time.Minute
)

// TokenSweeper evicts expired sessions.
type TokenSweeper interface {
	Sweep() int
}

// SweepObserver counts sweep results.
type SweepObserver interface {
	ObserveSweep(flagged int64, dropped int)
}

// SweeperDeps groups what the sweeper needs. Observer is optional.
type SweeperDeps struct {
	Logger   *zap.Logger
	Items    repository.ItemRepository
	Files    FileStore
	Sessions TokenSweeper
	Observer SweepObserver
	Now      func() time.Time
}

// RefreshResult reports one refresh pass.
type RefreshResult struct {
	Flagged int64 `json:"flagged"`
	Dropped int   `json:"dropped"`
}

// Sweeper expires items and sessions on a schedule.
type Sweeper struct {
	logger   *zap.Logger
	items    repository.ItemRepository
	files    FileStore
	sessions TokenSweeper
	observer SweepObserver
	now      func() time.Time
	cron     *cron.Cron
}

func NewSweeper(deps SweeperDeps) *Sweeper {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		logger:   logger,
		items:    deps.Items,
		files:    deps.Files,
		sessions: deps.Sessions,
		observer: deps.Observer,
		now:      func() time.Time { return now().UTC() },
	}
}

// Refresh marks exhausted items unavailable, then deletes the ones whose
// grace period ended and removes their payload files.
func (s *Sweeper) Refresh(ctx context.Context) (RefreshResult, error) {
	var res RefreshResult
	now := s.now()

	flagged, err := s.items.FlagExhausted(ctx, now, now.Add(model.GracePeriod))
	if err != nil {
		return res, fmt.Errorf("flag exhausted items: %w", err)
	}
	res.Flagged = flagged

	dropped, err := s.items.DropExpired(ctx, now)
	if err != nil {
		return res, fmt.Errorf("drop expired items: %w", err)
	}
	res.Dropped = len(dropped)

	for i := range dropped {
		item := &dropped[i]
		if !item.HasBackingFile() {
			continue
		}
		if err := s.files.Remove(item.Data); err != nil {
			s.logger.Warn("failed to remove payload of dropped item",
				zap.Error(err), zap.String("path", item.ShortPath), zap.String("file", item.Data))
		}
	}

	if s.observer != nil {
		s.observer.ObserveSweep(res.Flagged, res.Dropped)
	}
	s.logger.Info("item refresh finished", zap.Int64("flagged", res.Flagged), zap.Int("dropped", res.Dropped))
	return res, nil
}

// SweepTokens evicts expired sessions and returns how many remain.
func (s *Sweeper) SweepTokens() int {
	if s.sessions == nil {
		return 0
	}
	remaining := s.sessions.Sweep()
	s.logger.Debug("token sweep finished", zap.Int("remaining", remaining))
	return remaining
}

// Start schedules Refresh with refreshSpec and the token sweep every 30 minutes.
func (s *Sweeper) Start(refreshSpec string) error {
	logger := cronLogger{s.logger.Sugar()}
	c := cron.New(
		cron.WithParser(config.CronParser),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := c.AddFunc(refreshSpec, s.runRefresh); err != nil {
		return fmt.Errorf("schedule refresh %q: %w", refreshSpec, err)
	}
	if _, err := c.AddFunc(tokenSweepSchedule, func() { s.SweepTokens() }); err != nil {
		return fmt.Errorf("schedule token sweep: %w", err)
	}

	s.cron = c
	c.Start()
	s.logger.Info("sweeper started", zap.String("refresh", refreshSpec), zap.String("tokens", tokenSweepSchedule))
	return nil
}

// Stop halts scheduling. The returned context is done once running jobs finish.
func (s *Sweeper) Stop() context.Context {
	if s.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	s.logger.Info("sweeper stopped")
	return s.cron.Stop()
}

func (s *Sweeper) runRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	if _, err := s.Refresh(ctx); err != nil {
		s.logger.Error("item refresh failed", zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
