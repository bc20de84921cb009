package config

import (
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// InitDB opens the SQLite database named by DATABASE_PATH.
func InitDB() (*sql.DB, error) {
	path := os.Getenv("DATABASE_PATH")
	if path == "" {
		path = "expenses.db"
	}
	return OpenDB(path)
}

// OpenDB opens a SQLite database at the given path. Tests pass ":memory:".
func OpenDB(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		// The pragma must reach every pooled connection, not just the
		// one a plain Exec would run on.
		dsn = path + "?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection; the pool must not
	// spread statements across connections.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			totp_secret TEXT,
			totp_enabled INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			icon TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS expenses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			category_id INTEGER NOT NULL REFERENCES categories(id),
			amount REAL NOT NULL,
			description TEXT NOT NULL,
			date TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS import_sessions (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			file_name TEXT NOT NULL,
			csv_content TEXT NOT NULL,
			headers TEXT NOT NULL,
			column_mapping TEXT,
			status TEXT NOT NULL DEFAULT 'upload',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS import_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			file_name TEXT NOT NULL,
			imported_count INTEGER NOT NULL,
			skipped_count INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_expenses_user_id ON expenses(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses(date)`,
		`CREATE INDEX IF NOT EXISTS idx_import_sessions_user_id ON import_sessions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_import_history_user_id ON import_history(user_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return SeedCategories(db)
}

// SeedCategories inserts the default category set on first run.
// Categories are reference data and read-only through the API.
func SeedCategories(db *sql.DB) error {
	defaults := []struct {
		Name string
		Icon string
	}{
		{"Food", "utensils"},
		{"Transport", "car"},
		{"Entertainment", "film"},
		{"Shopping", "shopping-bag"},
		{"Bills", "file-text"},
		{"Healthcare", "heart"},
		{"Education", "book"},
		{"Travel", "plane"},
		{"Other", "more-horizontal"},
	}

	for _, c := range defaults {
		if _, err := db.Exec(
			`INSERT OR IGNORE INTO categories (name, icon) VALUES (?, ?)`,
			c.Name, c.Icon,
		); err != nil {
			return fmt.Errorf("failed to seed category %s: %w", c.Name, err)
		}
	}

	return nil
}
