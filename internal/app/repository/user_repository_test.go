package repository

import (
	"context"
	"testing"
	"time"

	"github.com/sifan077/spectra/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))

	user := &model.User{
		ID:         "u1",
		Name:       "Alice",
		Email:      "alice@example.com",
		Password:   model.HashPassword("pw"),
		CreatedAt:  time.Now().UTC(),
		Descriptor: model.NewPermissions(model.PermLink, model.PermFile),
	}
	require.NoError(t, repo.Create(ctx, user))

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)
	assert.Equal(t, model.NewPermissions(model.PermLink, model.PermFile), byEmail.Descriptor)

	dup := *user
	dup.ID = "u2"
	assert.ErrorIs(t, repo.Create(ctx, &dup), ErrUserExists)

	require.NoError(t, repo.UpdatePassword(ctx, "u1", model.HashPassword("new")))
	byID, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, model.PasswordMatches("new", byID.Password))

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, repo.Delete(ctx, "u1"))
	_, err = repo.GetByID(ctx, "u1")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "u1"), ErrUserNotFound)
	assert.ErrorIs(t, repo.UpdatePassword(ctx, "u1", "x"), ErrUserNotFound)
}

func TestUserRepository_RootExists(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))

	exists, err := repo.RootExists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Create(ctx, &model.User{
		ID:       model.RootUserID,
		Name:     "admin",
		Email:    "admin@example.com",
		Password: model.HashPassword("pw"),
	}))
	exists, err = repo.RootExists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
}
