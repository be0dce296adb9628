package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT NOT NULL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			api_key TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bots (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			name_key TEXT NOT NULL,
			status TEXT NOT NULL,
			coin INTEGER NOT NULL DEFAULT 0,
			fish_caught INTEGER NOT NULL DEFAULT 0,
			bot_json TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bots_user ON bots(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bots_name_key ON bots(name_key)`,
	},
	sizeQuery: `SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()`,
}

// NewSQLiteStore opens a SQLite-backed store.
// dbPath is the path to the SQLite database file (e.g., "./data/redcode.db")
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store, err := newSQLStore(ctx, db, sqliteDialect)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[SQLiteStore] Initialized with database: %s", dbPath)
	return store, nil
}
