package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/gaogaogoo/sport-log/internal/db/bunx"
	"github.com/gaogaogoo/sport-log/internal/db/models"
	"github.com/gaogaogoo/sport-log/internal/migrations"
)

// setupTestDB creates an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := bunx.NewDB(":memory:", 1)
	require.NoError(t, err)
	t.Cleanup(func() { bunx.Close(db) })

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	ctx := context.Background()
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	return db
}

func makeUser(t *testing.T, db *bun.DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		ID:       models.UserID(models.RandomID()),
		Username: username,
		Password: "hashed",
		Email:    username + "@example.com",
	}
	require.NoError(t, NewBunUserRepository(db).Create(context.Background(), user))
	return user
}

func makePlatform(t *testing.T, db *bun.DB, name string) *models.Platform {
	t.Helper()

	platform := &models.Platform{
		ID:         models.PlatformID(models.RandomID()),
		Name:       name,
		Credential: true,
	}
	require.NoError(t, NewBunPlatformRepository(db).Create(context.Background(), platform))
	return platform
}

func makeProvider(t *testing.T, db *bun.DB, name string, platformID models.PlatformID) *models.ActionProvider {
	t.Helper()

	provider := &models.ActionProvider{
		ID:         models.ActionProviderID(models.RandomID()),
		Name:       name,
		Password:   "hashed",
		PlatformID: platformID,
	}
	require.NoError(t, NewBunActionRepository(db).CreateProvider(context.Background(), provider))
	return provider
}

func makeAction(t *testing.T, db *bun.DB, name string, providerID models.ActionProviderID) *models.Action {
	t.Helper()

	action := &models.Action{
		ID:               models.ActionID(models.RandomID()),
		Name:             name,
		ActionProviderID: providerID,
		CreateBefore:     (7 * 24 * time.Hour).Milliseconds(),
		DeleteAfter:      (24 * time.Hour).Milliseconds(),
	}
	require.NoError(t, NewBunActionRepository(db).CreateAction(context.Background(), action))
	return action
}
