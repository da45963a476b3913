package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IsSQLiteFilePath checks if a string looks like a SQLite file path
func IsSQLiteFilePath(s string) bool {
	s = strings.ToLower(s)

	if s == ":memory:" || strings.HasPrefix(s, "libsql://") {
		return false
	}

	if strings.HasPrefix(s, "sqlite://") || strings.HasPrefix(s, "file:") {
		return true
	}

	return strings.HasSuffix(s, ".db") ||
		strings.HasSuffix(s, ".sqlite") ||
		strings.HasSuffix(s, ".sqlite3")
}

// ExtractSQLiteFilePath extracts the file path from a SQLite connection string
func ExtractSQLiteFilePath(connStr string) string {
	for _, prefix := range []string{"sqlite://", "file:"} {
		if strings.HasPrefix(connStr, prefix) {
			path := strings.TrimPrefix(connStr, prefix)
			if idx := strings.Index(path, "?"); idx >= 0 {
				path = path[:idx]
			}
			return path
		}
	}
	return connStr
}

// EnsureSQLiteDatabase creates a SQLite database file (and its directory) if
// it does not exist yet. Non-file connection strings are ignored.
func EnsureSQLiteDatabase(connStr string) error {
	if !IsSQLiteFilePath(connStr) {
		return nil
	}

	filePath := ExtractSQLiteFilePath(connStr)
	info, err := os.Stat(filePath)
	if err == nil {
		if info.IsDir() {
			return fmt.Errorf("path is a directory, not a file: %s", filePath)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	dir := filepath.Dir(filePath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", filePath)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer func() { _ = db.Close() }()

	// SQLite won't create the file until something is written
	_, err = db.Exec("CREATE TABLE IF NOT EXISTS _scenarioctl_init (id INTEGER PRIMARY KEY); DROP TABLE IF EXISTS _scenarioctl_init;")
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	return nil
}
