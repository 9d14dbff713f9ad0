package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/spectra/config"
	"github.com/sifan077/spectra/internal/app/model"
	"github.com/sifan077/spectra/internal/infra/database"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(context.Background(), db, &model.Item{}, &model.User{}, &model.AccessLog{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newItem(path string, t model.ItemType, created time.Time) *model.Item {
	return &model.Item{
		ID:        uuid.Must(uuid.NewV7()).String(),
		ShortPath: path,
		ItemType:  t,
		Data:      "https://example.com/" + path,
		CreatedAt: created,
		Available: true,
	}
}

func ptr[T any](v T) *T { return &v }
