// Package database provides SQLite connectivity for the parking lot core.
//
// This package manages:
//   - Database connection with WAL mode and a single-writer pool
//   - Embedded schema migrations (see the top-level migrations package)
//   - Health checks and lifecycle management
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
