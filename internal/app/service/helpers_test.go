package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sifan077/spectra/config"
	"github.com/sifan077/spectra/internal/app/model"
	"github.com/sifan077/spectra/internal/app/repository"
	"github.com/sifan077/spectra/internal/app/session"
	"github.com/sifan077/spectra/internal/infra/database"
	"github.com/sifan077/spectra/internal/infra/filestore"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeVerifier struct {
	enabled bool
	err     error
	calls   int
}

func (v *fakeVerifier) Enabled() bool { return v.enabled }

func (v *fakeVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	v.calls++
	return v.err
}

type testEnv struct {
	clock    *fakeClock
	items    repository.ItemRepository
	logs     repository.AccessLogRepository
	users    repository.UserRepository
	files    *filestore.Store
	sessions *session.Store
	verifier *fakeVerifier
	svc      ItemService
	userSvc  UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(dir, "spectra.db")},
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(context.Background(), db, &model.Item{}, &model.User{}, &model.AccessLog{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	files, err := filestore.New(filepath.Join(dir, "files"))
	require.NoError(t, err)

	e := &testEnv{
		clock:    &fakeClock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)},
		items:    repository.NewItemRepository(db),
		logs:     repository.NewAccessLogRepository(db),
		users:    repository.NewUserRepository(db),
		files:    files,
		sessions: session.NewStore(),
		verifier: &fakeVerifier{},
	}
	e.svc = NewItemService(ItemDeps{
		Items:    e.items,
		Logs:     e.logs,
		Files:    e.files,
		Sessions: e.sessions,
		Verifier: e.verifier,
		Now:      e.clock.Now,
	})
	e.userSvc = NewUserService(UserDeps{
		Users:    e.users,
		Sessions: e.sessions,
		Now:      e.clock.Now,
	})
	return e
}

// member stores a user holding perms and returns it as an actor.
func (e *testEnv) member(t *testing.T, id string, perms ...model.Permission) *Actor {
	t.Helper()
	u := &model.User{
		ID:         id,
		Name:       id,
		Email:      id + "@example.com",
		Password:   model.HashPassword(id + "-pw"),
		CreatedAt:  e.clock.Now(),
		Descriptor: model.NewPermissions(perms...),
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return &Actor{UserID: u.ID, User: u}
}

func (e *testEnv) root(t *testing.T) *Actor {
	return e.member(t, model.RootUserID)
}

func (e *testEnv) create(t *testing.T, actor *Actor, in CreateInput) *model.Item {
	t.Helper()
	res, err := e.svc.Create(context.Background(), actor, in)
	require.NoError(t, err)
	return res.Item
}

func (e *testEnv) countLogs(t *testing.T, item *model.Item, op model.Operation, success bool) int {
	t.Helper()
	logs, err := e.logs.ListByItem(context.Background(), item.ID)
	require.NoError(t, err)
	n := 0
	for _, l := range logs {
		if l.Operation == op && l.Success == success {
			n++
		}
	}
	return n
}

func ptr[T any](v T) *T { return &v }
