package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gaogaogoo/sport-log/internal/db/models"
	"github.com/uptrace/bun"
)

// BunPlatformRepository persists platforms using Bun. Platforms are shared
// rows: every principal sees all of them.
type BunPlatformRepository struct {
	db *bun.DB
}

// NewBunPlatformRepository constructs a repository backed by Bun.
func NewBunPlatformRepository(db *bun.DB) *BunPlatformRepository {
	return &BunPlatformRepository{db: db}
}

// Create inserts a new platform.
func (r *BunPlatformRepository) Create(ctx context.Context, platform *models.Platform) error {
	if err := platform.ValidateForCreate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	platform.Touch(time.Now().UTC())

	if _, err := r.db.NewInsert().Model(platform).Exec(ctx); err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: platform %q already exists", ErrConflict, platform.Name)
		}
		return fmt.Errorf("insert platform: %w", err)
	}
	return nil
}

// GetByID fetches a platform by id.
func (r *BunPlatformRepository) GetByID(ctx context.Context, id models.PlatformID) (*models.Platform, error) {
	platform := new(models.Platform)
	err := r.db.NewSelect().Model(platform).Where("id = ?", int64(id)).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query platform: %w", err)
	}
	return platform, nil
}

// GetByName fetches a live platform by its unique name.
func (r *BunPlatformRepository) GetByName(ctx context.Context, name string) (*models.Platform, error) {
	platform := new(models.Platform)
	err := r.db.NewSelect().Model(platform).
		Where("name = ?", name).
		Where("deleted = ?", false).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query platform: %w", err)
	}
	return platform, nil
}

// List returns all live platforms ordered by name.
func (r *BunPlatformRepository) List(ctx context.Context) ([]models.Platform, error) {
	var platforms []models.Platform
	err := r.db.NewSelect().Model(&platforms).
		Where("deleted = ?", false).
		Order("name").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	if platforms == nil {
		platforms = []models.Platform{}
	}
	return platforms, nil
}

// Sync returns platforms changed at or after the epoch cursor, tombstones
// included.
func (r *BunPlatformRepository) Sync(ctx context.Context, epoch time.Time) ([]models.Platform, error) {
	var platforms []models.Platform
	err := r.db.NewSelect().Model(&platforms).
		Where("last_change >= ?", epoch).
		Order("last_change").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync platforms: %w", err)
	}
	if platforms == nil {
		platforms = []models.Platform{}
	}
	return platforms, nil
}

// Update persists a mutated platform and refreshes last_change.
func (r *BunPlatformRepository) Update(ctx context.Context, platform *models.Platform) error {
	platform.Touch(time.Now().UTC())

	result, err := r.db.NewUpdate().Model(platform).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update platform: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete tombstones a platform.
func (r *BunPlatformRepository) SoftDelete(ctx context.Context, id models.PlatformID) error {
	_, err := r.db.NewUpdate().
		Model((*models.Platform)(nil)).
		Set("deleted = ?", true).
		Set("last_change = ?", time.Now().UTC()).
		Where("id = ?", int64(id)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("soft delete platform: %w", err)
	}
	return nil
}

// MaxLastChange returns the platform table's epoch.
func (r *BunPlatformRepository) MaxLastChange(ctx context.Context) (time.Time, error) {
	var epoch sql.NullTime
	err := r.db.NewSelect().Model((*models.Platform)(nil)).
		ColumnExpr("max(last_change)").
		Scan(ctx, &epoch)
	if err != nil {
		return time.Time{}, fmt.Errorf("query epoch: %w", err)
	}
	if !epoch.Valid {
		return time.Time{}, nil
	}
	return epoch.Time.UTC(), nil
}

// BunPlatformCredentialRepository persists platform credentials; the generic
// record repository covers CRUD and sync, plus a by-platform lookup here.
type BunPlatformCredentialRepository struct {
	*BunRecordRepository[models.PlatformCredential, *models.PlatformCredential]
}

// NewBunPlatformCredentialRepository constructs a repository backed by Bun.
func NewBunPlatformCredentialRepository(db *bun.DB) *BunPlatformCredentialRepository {
	return &BunPlatformCredentialRepository{
		BunRecordRepository: NewBunRecordRepository[models.PlatformCredential, *models.PlatformCredential](db),
	}
}

// ListByUserAndPlatform returns the user's live credentials for one platform.
func (r *BunPlatformCredentialRepository) ListByUserAndPlatform(ctx context.Context, userID models.UserID, platformID models.PlatformID) ([]models.PlatformCredential, error) {
	var creds []models.PlatformCredential
	err := r.DB().NewSelect().Model(&creds).
		Where("user_id = ?", int64(userID)).
		Where("platform_id = ?", int64(platformID)).
		Where("deleted = ?", false).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list platform credentials: %w", err)
	}
	if creds == nil {
		creds = []models.PlatformCredential{}
	}
	return creds, nil
}
