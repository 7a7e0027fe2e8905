// Package database opens the relational backend used by the database
// entity source and inspects its tables.
//
// Connect selects the dialector from Config.Driver: sqlite (a file path or
// :memory:) for local installs and tests, mysql for shared deployments.
//
// CheckColumns compares a live table against the columns a writer expects and
// reports what is missing, which backs the database integrity check:
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	report, err := database.CheckColumns(db, "entity_records", dbsource.Columns)
package database
