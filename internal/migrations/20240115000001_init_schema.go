package migrations

import (
	"context"
	"fmt"

	"github.com/gaogaogoo/sport-log/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20240115000001, down_20240115000001)
}

// tables in dependency order (parents first)
var initTables = []any{
	(*models.User)(nil),
	(*models.Platform)(nil),
	(*models.PlatformCredential)(nil),
	(*models.ActionProvider)(nil),
	(*models.Action)(nil),
	(*models.ActionRule)(nil),
	(*models.ActionEvent)(nil),
	(*models.Movement)(nil),
	(*models.Route)(nil),
	(*models.CardioSession)(nil),
	(*models.StrengthSession)(nil),
	(*models.StrengthSet)(nil),
	(*models.Metcon)(nil),
	(*models.MetconMovement)(nil),
	(*models.MetconSession)(nil),
	(*models.Diary)(nil),
	(*models.Wod)(nil),
}

// up_20240115000001 creates all tables
func up_20240115000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating tables...")

	for _, model := range initTables {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
	}

	fmt.Println(" OK")
	return nil
}

// down_20240115000001 drops all tables
func down_20240115000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping tables...")

	for i := len(initTables) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().
			Model(initTables[i]).
			IfExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table for %T: %w", initTables[i], err)
		}
	}

	fmt.Println(" OK")
	return nil
}
