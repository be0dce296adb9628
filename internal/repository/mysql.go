package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/go-sql-driver/mysql"
)

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) NOT NULL PRIMARY KEY,
			username VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			api_key VARCHAR(128) NOT NULL DEFAULT '',
			created_at DATETIME(6) NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS bots (
			seq BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			id VARCHAR(64) NOT NULL UNIQUE,
			user_id VARCHAR(64) NOT NULL,
			name VARCHAR(255) NOT NULL,
			name_key VARCHAR(255) NOT NULL,
			status VARCHAR(16) NOT NULL,
			coin BIGINT NOT NULL DEFAULT 0,
			fish_caught BIGINT NOT NULL DEFAULT 0,
			bot_json LONGTEXT NOT NULL,
			INDEX idx_bots_user (user_id),
			INDEX idx_bots_name_key (name_key)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
	sizeQuery: `SELECT COALESCE(SUM(data_length + index_length), 0) FROM information_schema.tables WHERE table_schema = DATABASE()`,
}

// NewMySQLStore opens a MySQL-backed store.
// dsn format: "user:password@tcp(host:port)/dbname?parseTime=true"
func NewMySQLStore(ctx context.Context, dsn string) (*SQLStore, error) {
	dsn, err := mysqlDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	store, err := newSQLStore(ctx, db, mysqlDialect)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[MySQLStore] Initialized with pool: max=%d, idle=%d", 10, 5)
	return store, nil
}

// mysqlDSN forces the options the store relies on. Without clientFoundRows,
// an UPDATE that changes nothing reports zero rows and reads as not found.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	cfg.ClientFoundRows = true
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}
