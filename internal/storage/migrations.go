package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// Migration is one forward schema change.
type Migration struct {
	Version string
	Up      string
}

// AllMigrations contains every schema migration. Order in the slice doesn't
// matter; they run sorted by semantic version.
var AllMigrations = []Migration{
	{Version: "1.0.0", Up: migrationV1},
	{Version: "1.1.0", Up: migrationV1_1},
	{Version: "1.2.0", Up: migrationV1_2},
}

const migrationV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
	version    TEXT PRIMARY KEY,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE users (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	username    TEXT NOT NULL UNIQUE,
	email       TEXT NOT NULL UNIQUE,
	profile_pic TEXT NOT NULL DEFAULT 'default.jpg',
	password    TEXT NOT NULL
);

CREATE TABLE books (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	title     TEXT NOT NULL,
	author    TEXT NOT NULL,
	num_pages INTEGER,
	isbn      TEXT
);

CREATE INDEX idx_books_title ON books(title);

CREATE TABLE ownership (
	user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	book_id    INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
	date_added TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, book_id)
);

CREATE INDEX idx_ownership_book ON ownership(book_id);
`

const migrationV1_1 = `
ALTER TABLE users ADD COLUMN first_name TEXT NOT NULL DEFAULT '';
ALTER TABLE users ADD COLUMN last_name  TEXT NOT NULL DEFAULT '';
ALTER TABLE users ADD COLUMN is_admin   INTEGER NOT NULL DEFAULT 0;
ALTER TABLE users ADD COLUMN created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP;
`

const migrationV1_2 = `
CREATE TABLE taggings (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	book_id INTEGER NOT NULL,
	name    TEXT NOT NULL,
	UNIQUE (user_id, book_id, name),
	FOREIGN KEY (user_id, book_id) REFERENCES ownership(user_id, book_id) ON DELETE CASCADE
);
`

// SchemaVersion returns the highest applied migration, or "0.0.0".
func SchemaVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	var tableName string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)
	if errors.Is(err, sql.ErrNoRows) {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check schema_version table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer func() { _ = rows.Close() }()

	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to read schema_version: %w", err)
		}
		v, err := semver.NewVersion(s)
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %s: %w", s, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}

// ApplyMigrations runs all pending migrations, each in its own transaction.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	type pending struct {
		version *semver.Version
		up      string
	}
	var todo []pending
	for _, m := range AllMigrations {
		v, err := semver.NewVersion(m.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", m.Version, err)
		}
		if current.LessThan(v) {
			todo = append(todo, pending{version: v, up: m.Up})
		}
	}
	sort.Slice(todo, func(i, j int) bool { return todo[i].version.LessThan(todo[j].version) })

	for _, m := range todo {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, m.up); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_version (version) VALUES (?)", m.version.Original()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", m.version, err)
		}
	}
	return nil
}
