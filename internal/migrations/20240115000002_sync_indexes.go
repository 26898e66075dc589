package migrations

import (
	"context"
	"fmt"

	"github.com/gaogaogoo/sport-log/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20240115000002, down_20240115000002)
}

// up_20240115000002 creates the action_event uniqueness constraint and the
// last_change sync indexes.
//
// The partial unique index on (user_id, action_id, datetime) is the sole
// serialisation point for the scheduler's bulk insert: repeated runs collide
// here and are ignored. Deleted rows are excluded so a recreated event does
// not conflict with its own tombstone.
func up_20240115000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating indexes...")

	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS action_event_user_action_datetime_idx
			ON action_event (user_id, action_id, datetime) WHERE deleted = false`,
		`CREATE UNIQUE INDEX IF NOT EXISTS wod_user_date_idx
			ON wod (user_id, date) WHERE deleted = false`,
		`CREATE UNIQUE INDEX IF NOT EXISTS diary_user_date_idx
			ON diary (user_id, date) WHERE deleted = false`,
	}
	for _, table := range models.SoftDeleteTables {
		stmts = append(stmts, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s_last_change_idx ON %q (last_change)`,
			table, table,
		))
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	fmt.Println(" OK")
	return nil
}

// down_20240115000002 drops the indexes
func down_20240115000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping indexes...")

	stmts := []string{
		`DROP INDEX IF EXISTS action_event_user_action_datetime_idx`,
		`DROP INDEX IF EXISTS wod_user_date_idx`,
		`DROP INDEX IF EXISTS diary_user_date_idx`,
	}
	for _, table := range models.SoftDeleteTables {
		stmts = append(stmts, fmt.Sprintf(`DROP INDEX IF EXISTS %s_last_change_idx`, table))
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop index: %w", err)
		}
	}

	fmt.Println(" OK")
	return nil
}
