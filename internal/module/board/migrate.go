package board

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/taskboard/server/internal/shared/database"
)

// positionConstraints keep orders unique per parent on Postgres. They are
// deferred to commit so bulk shifts may pass through duplicate states.
var positionConstraints = []struct {
	table, name, columns string
}{
	{"lists", "uq_lists_board_position", "board_id, position"},
	{"cards", "uq_cards_list_position", "list_id, position"},
}

// Migrate creates or updates the board schema.
func Migrate(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)
	if err := db.AutoMigrate(&Board{}, &BoardMember{}, &List{}, &Card{}, &Activity{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if !database.IsPostgres(db) {
		return nil
	}

	for _, c := range positionConstraints {
		var exists int64
		err := db.Raw("SELECT COUNT(*) FROM pg_constraint WHERE conname = ?", c.name).Scan(&exists).Error
		if err != nil {
			return fmt.Errorf("inspect constraint %s: %w", c.name, err)
		}
		if exists > 0 {
			continue
		}
		stmt := fmt.Sprintf(
			"ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s) DEFERRABLE INITIALLY DEFERRED",
			c.table, c.name, c.columns,
		)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("add constraint %s: %w", c.name, err)
		}
	}
	return nil
}
