package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sifan077/spectra/internal/app/model"
	"github.com/sifan077/spectra/internal/app/repository"
	"github.com/sifan077/spectra/internal/infra/filestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sweepCounter struct {
	flagged int64
	dropped int
}

func (c *sweepCounter) ObserveSweep(flagged int64, dropped int) {
	c.flagged += flagged
	c.dropped += dropped
}

func TestSweeper_Refresh(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	alice := e.member(t, "alice", model.PermCode, model.PermFile)
	code := e.create(t, alice, CreateInput{Path: "c", ItemType: model.ItemCode, Data: "x", MaxVisits: ptr(int64(1))})
	e.create(t, alice, CreateInput{Path: "f", ItemType: model.ItemFile, MaxVisits: ptr(int64(1))})
	e.create(t, alice, CreateInput{Path: "keep", ItemType: model.ItemCode, Data: "y"})
	for _, p := range []string{"c", "f"} {
		d, err := e.svc.Open(ctx, OpenRequest{Path: p, Actor: Anonymous()})
		require.NoError(t, err)
		if d.File != nil {
			require.NoError(t, d.File.Close())
		}
	}

	counter := &sweepCounter{}
	sw := NewSweeper(SweeperDeps{Items: e.items, Files: e.files, Sessions: e.sessions, Observer: counter, Now: e.clock.Now})

	res, err := sw.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, RefreshResult{Flagged: 2, Dropped: 0}, res)

	e.clock.Advance(model.GracePeriod + time.Hour)
	res, err = sw.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, RefreshResult{Flagged: 0, Dropped: 2}, res)
	assert.Equal(t, &sweepCounter{flagged: 2, dropped: 2}, counter)

	_, err = e.items.GetByPath(ctx, "c")
	assert.ErrorIs(t, err, repository.ErrItemNotFound)
	_, err = os.Stat(filepath.Join(e.files.Dir(), code.Data))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(e.files.Dir(), filestore.PlaceholderName))
	assert.NoError(t, err, "placeholder survives dropping a pending file item")

	_, err = e.items.GetByPath(ctx, "keep")
	assert.NoError(t, err)
}

func TestSweeper_RefreshStorageError(t *testing.T) {
	boom := errors.New("locked")
	sw := NewSweeper(SweeperDeps{Items: &mockItemRepository{
		flagExhaustedFn: func(ctx context.Context, now, dropAt time.Time) (int64, error) { return 0, boom },
	}})

	_, err := sw.Refresh(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestSweeper_SweepTokens(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.sessions.Issue("u", false)
	require.NoError(t, err)

	sw := NewSweeper(SweeperDeps{Items: e.items, Files: e.files, Sessions: e.sessions})
	assert.Equal(t, 1, sw.SweepTokens())
	assert.Equal(t, 0, NewSweeper(SweeperDeps{}).SweepTokens())
}

func TestSweeper_StartStop(t *testing.T) {
	sw := NewSweeper(SweeperDeps{Items: &mockItemRepository{}})

	assert.Error(t, sw.Start("whenever"))
	require.NoError(t, sw.Start("@every 1h"))

	select {
	case <-sw.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
