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

// PtrRecord constrains T to a pointer to a bun model implementing Record.
type PtrRecord[M any] interface {
	*M
	models.Record
}

// BunRecordRepository persists one kind of user-owned record using Bun.
// The same implementation backs movements, routes, cardio sessions, strength
// sessions and sets, metcons, metcon movements and sessions, diaries, wods
// and platform credentials; per-resource behaviour is captured by the two
// knobs: shared (reads include user_id IS NULL rows) and timeColumn (enables
// timespan-filtered reads on that column).
type BunRecordRepository[M any, T PtrRecord[M]] struct {
	db         *bun.DB
	shared     bool
	timeColumn string
}

// NewBunRecordRepository constructs a repository backed by Bun.
func NewBunRecordRepository[M any, T PtrRecord[M]](db *bun.DB) *BunRecordRepository[M, T] {
	return &BunRecordRepository[M, T]{db: db}
}

// WithSharedRows makes reads include system-shared rows (user_id IS NULL).
func (r *BunRecordRepository[M, T]) WithSharedRows() *BunRecordRepository[M, T] {
	r.shared = true
	return r
}

// WithTimeColumn enables ListByUserBetween on the given column.
func (r *BunRecordRepository[M, T]) WithTimeColumn(column string) *BunRecordRepository[M, T] {
	r.timeColumn = column
	return r
}

// DB exposes the underlying handle for repositories that embed this one.
func (r *BunRecordRepository[M, T]) DB() *bun.DB { return r.db }

func (r *BunRecordRepository[M, T]) ownerClause(q *bun.SelectQuery, userID models.UserID) *bun.SelectQuery {
	if r.shared {
		return q.Where("(user_id = ? OR user_id IS NULL)", int64(userID))
	}
	return q.Where("user_id = ?", int64(userID))
}

// Create inserts a new row using the client-provided id.
func (r *BunRecordRepository[M, T]) Create(ctx context.Context, rec T) error {
	rec.Touch(time.Now().UTC())

	if _, err := r.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: id %d", ErrConflict, rec.RecordID())
		}
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// CreateMultiple inserts a batch in one statement. Any uniqueness violation
// fails the whole batch.
func (r *BunRecordRepository[M, T]) CreateMultiple(ctx context.Context, recs []M) error {
	if len(recs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range recs {
		T(&recs[i]).Touch(now)
	}

	if _, err := r.db.NewInsert().Model(&recs).Exec(ctx); err != nil {
		if isDuplicateKeyError(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert records: %w", err)
	}
	return nil
}

// GetByID fetches a row by id, tombstones included.
func (r *BunRecordRepository[M, T]) GetByID(ctx context.Context, id int64) (T, error) {
	rec := T(new(M))
	err := r.db.NewSelect().Model(rec).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query record: %w", err)
	}
	return rec, nil
}

// Update persists a mutated row and refreshes last_change.
func (r *BunRecordRepository[M, T]) Update(ctx context.Context, rec T) error {
	rec.Touch(time.Now().UTC())

	result, err := r.db.NewUpdate().Model(rec).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete tombstones one row.
func (r *BunRecordRepository[M, T]) SoftDelete(ctx context.Context, id int64) error {
	return r.SoftDeleteMultiple(ctx, []int64{id})
}

// SoftDeleteMultiple tombstones a batch of rows and refreshes last_change.
func (r *BunRecordRepository[M, T]) SoftDeleteMultiple(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.db.NewUpdate().
		Model((*M)(nil)).
		Set("deleted = ?", true).
		Set("last_change = ?", time.Now().UTC()).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("soft delete records: %w", err)
	}
	return nil
}

// ListByUser returns all live rows visible to the user, ordered by id.
func (r *BunRecordRepository[M, T]) ListByUser(ctx context.Context, userID models.UserID) ([]M, error) {
	var recs []M
	q := r.db.NewSelect().Model(&recs).Where("deleted = ?", false).Order("id")
	if err := r.ownerClause(q, userID).Scan(ctx); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if recs == nil {
		recs = []M{}
	}
	return recs, nil
}

// SyncByUser returns every row visible to the user whose last_change is at
// or after the epoch cursor, tombstones included.
func (r *BunRecordRepository[M, T]) SyncByUser(ctx context.Context, userID models.UserID, epoch time.Time) ([]M, error) {
	var recs []M
	q := r.db.NewSelect().Model(&recs).
		Where("last_change >= ?", epoch).
		Order("last_change")
	if err := r.ownerClause(q, userID).Scan(ctx); err != nil {
		return nil, fmt.Errorf("sync records: %w", err)
	}
	if recs == nil {
		recs = []M{}
	}
	return recs, nil
}

// ListByUserBetween returns live rows whose time column lies in
// [start, end], ordered by that column.
func (r *BunRecordRepository[M, T]) ListByUserBetween(ctx context.Context, userID models.UserID, start, end any) ([]M, error) {
	if r.timeColumn == "" {
		return nil, errors.New("repository has no time column")
	}

	var recs []M
	q := r.db.NewSelect().Model(&recs).
		Where("deleted = ?", false).
		Where("? BETWEEN ? AND ?", bun.Ident(r.timeColumn), start, end).
		OrderExpr("?", bun.Ident(r.timeColumn))
	if err := r.ownerClause(q, userID).Scan(ctx); err != nil {
		return nil, fmt.Errorf("list records by timespan: %w", err)
	}
	if recs == nil {
		recs = []M{}
	}
	return recs, nil
}

// MaxLastChange returns the epoch of the rows visible to the user, or the
// zero time when the table is empty.
func (r *BunRecordRepository[M, T]) MaxLastChange(ctx context.Context, userID models.UserID) (time.Time, error) {
	var epoch sql.NullTime
	q := r.db.NewSelect().Model((*M)(nil)).ColumnExpr("max(last_change)")
	if err := r.ownerClause(q, userID).Scan(ctx, &epoch); err != nil {
		return time.Time{}, fmt.Errorf("query epoch: %w", err)
	}
	if !epoch.Valid {
		return time.Time{}, nil
	}
	return epoch.Time.UTC(), nil
}
