// Package database provides SQLite connectivity for CryoTrack Core.
//
// It manages the connection (WAL mode, busy timeout, single-writer pool),
// file permissions, health checks, and embedded schema migrations.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are embedded via the migrations package and ship inside the
// binary; each file pair is named YYYYMMDD_HHMMSS_description.{up,down}.sql.
package database
