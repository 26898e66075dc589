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

// BunUserRepository persists user accounts using Bun.
type BunUserRepository struct {
	db *bun.DB
}

// NewBunUserRepository constructs a repository backed by Bun.
func NewBunUserRepository(db *bun.DB) *BunUserRepository {
	return &BunUserRepository{db: db}
}

// Create inserts a new user. The password must already be hashed.
func (r *BunUserRepository) Create(ctx context.Context, user *models.User) error {
	if err := user.ValidateForCreate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	user.Touch(time.Now().UTC())

	if _, err := r.db.NewInsert().Model(user).Exec(ctx); err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: username or email already taken", ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID fetches a user by id.
func (r *BunUserRepository) GetByID(ctx context.Context, id models.UserID) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().Model(user).Where("id = ?", int64(id)).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// GetByUsername fetches a live user for authentication.
func (r *BunUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().Model(user).
		Where("username = ?", username).
		Where("deleted = ?", false).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// Update persists a mutated user and refreshes last_change. The password
// must already be hashed.
func (r *BunUserRepository) Update(ctx context.Context, user *models.User) error {
	user.Touch(time.Now().UTC())

	result, err := r.db.NewUpdate().Model(user).WherePK().Exec(ctx)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: username or email already taken", ErrConflict)
		}
		return fmt.Errorf("update user: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete tombstones the user account.
func (r *BunUserRepository) SoftDelete(ctx context.Context, id models.UserID) error {
	_, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("deleted = ?", true).
		Set("last_change = ?", time.Now().UTC()).
		Where("id = ?", int64(id)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("soft delete user: %w", err)
	}
	return nil
}
