package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ColumnInfo matches the output of SHOW COLUMNS.
type ColumnInfo struct {
	Field   string  `json:"field"`
	Type    string  `json:"type"`
	Null    string  `json:"null"`
	Key     string  `json:"key"`
	Default *string `json:"default,omitempty"`
	Extra   string  `json:"extra,omitempty"`
}

// TableReport is the outcome of CheckColumns.
type TableReport struct {
	Table   string       `json:"table"`
	Exists  bool         `json:"exists"`
	Columns []ColumnInfo `json:"columns"`
	Missing []string     `json:"missing"`
}

// OK reports whether the table exists with every expected column.
func (r *TableReport) OK() bool {
	return r.Exists && len(r.Missing) == 0
}

// GetTableColumns retrieves the column definitions for a given table. Names
// and types are lowercased. A missing table yields no columns on sqlite.
func GetTableColumns(db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	if db.Dialector.Name() == "sqlite" {
		type sqliteColumn struct {
			Cid       int
			Name      string
			Type      string
			Notnull   int
			DfltValue *string
			Pk        int
		}
		var rows []sqliteColumn
		if err := db.Raw(fmt.Sprintf("PRAGMA table_info('%s')", tableName)).Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
		}
		columns := make([]ColumnInfo, 0, len(rows))
		for _, row := range rows {
			col := ColumnInfo{
				Field:   strings.ToLower(row.Name),
				Type:    strings.ToLower(row.Type),
				Null:    "YES",
				Default: row.DfltValue,
			}
			if row.Notnull == 1 {
				col.Null = "NO"
			}
			if row.Pk > 0 {
				col.Key = "PRI"
			}
			columns = append(columns, col)
		}
		return columns, nil
	}

	var columns []ColumnInfo
	if err := db.Raw(fmt.Sprintf("SHOW COLUMNS FROM `%s`", tableName)).Scan(&columns).Error; err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
	}
	for i := range columns {
		columns[i].Type = strings.ToLower(columns[i].Type)
		columns[i].Field = strings.ToLower(columns[i].Field)
	}
	return columns, nil
}

// CheckColumns compares a table against the columns a model expects.
func CheckColumns(db *gorm.DB, tableName string, expected []string) (*TableReport, error) {
	columns, err := GetTableColumns(db, tableName)
	if err != nil {
		return nil, err
	}
	report := &TableReport{
		Table:   tableName,
		Exists:  len(columns) > 0,
		Columns: columns,
		Missing: []string{},
	}
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c.Field] = true
	}
	for _, name := range expected {
		if !present[strings.ToLower(name)] {
			report.Missing = append(report.Missing, name)
		}
	}
	return report, nil
}
