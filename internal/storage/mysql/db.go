// ABOUTME: MySQL connection and schema setup for docchat history
// ABOUTME: parseTime is forced on so DATETIME columns scan into time.Time
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DB wraps a MySQL connection pool
type DB struct {
	conn *sql.DB
}

// Open connects to dsn and creates the history table if needed
func Open(ctx context.Context, dsn string) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("mysql dsn is required")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}
	conn := sql.OpenDB(connector)
	conn.SetMaxOpenConns(10)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.EnsureTables(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// EnsureTables creates the history table
func (db *DB) EnsureTables(ctx context.Context) error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS `docchat_history` (" +
			"`seq` BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY," +
			"`id` VARCHAR(64) NOT NULL UNIQUE," +
			"`session_id` VARCHAR(256) NOT NULL," +
			"`role` VARCHAR(16) NOT NULL," +
			"`content` MEDIUMTEXT NOT NULL," +
			"`created_at` DATETIME(6) NOT NULL," +
			"INDEX `idx_docchat_history_session` (`session_id`, `seq`)" +
			") CHARACTER SET utf8mb4",
	}
	for _, s := range stmts {
		if _, err := db.conn.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the connection pool
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB
func (db *DB) Conn() *sql.DB {
	return db.conn
}
