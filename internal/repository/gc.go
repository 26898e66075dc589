package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/gaogaogoo/sport-log/internal/db/models"
	"github.com/uptrace/bun"
)

// HardDeleteOlderThan removes tombstoned rows whose last_change lies before
// the cutoff. Tables are processed children first so foreign keys never block
// a delete.
func HardDeleteOlderThan(ctx context.Context, db *bun.DB, cutoff time.Time) (int64, error) {
	var total int64
	for _, table := range models.SoftDeleteTables {
		result, err := db.NewDelete().
			Table(table).
			Where("deleted = ?", true).
			Where("last_change < ?", cutoff).
			Exec(ctx)
		if err != nil {
			return total, fmt.Errorf("garbage collect %s: %w", table, err)
		}
		rows, _ := result.RowsAffected()
		total += rows
	}
	return total, nil
}
