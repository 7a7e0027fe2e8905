package checks

import (
	"context"
	"fmt"

	"entity-sync/core/database"
	"entity-sync/core/source/dbsource"

	"gorm.io/gorm"
)

// CheckDatabase verifies the entity_records table carries every column the
// database source writes.
func CheckDatabase(db *gorm.DB) (*database.TableReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return database.CheckColumns(db, dbsource.Record{}.TableName(), dbsource.Columns)
}

// FixDatabase migrates the entity_records table.
func FixDatabase(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return dbsource.New("database", db).Migrate(ctx)
}
