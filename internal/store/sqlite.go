package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"database/sql"

	_ "modernc.org/sqlite"
)

// OpenSQLite initializes a SQLite-backed history store.
// The dsn can be a file path like "/path/to/events.db" or ":memory:" for in-memory.
func OpenSQLite(dsn string) (*History, error) {
	// Ensure directory exists for file-based databases
	if dsn != "" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		dir := filepath.Dir(dsn)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// SQLite optimizations
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	h := &History{db: db, dialect: "sqlite"}
	if err := h.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return h, nil
}
