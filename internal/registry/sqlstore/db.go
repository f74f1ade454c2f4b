// Package sqlstore is a registry.Store backed by an append-only SQLite log.
package sqlstore

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"capsule/internal/diag"
	"capsule/internal/source"
)

//go:embed schema.sql
var schemaSQL string

// Schema versions:
// 1 - sessions and definitions tables
const currentSchemaVersion = 1

// DB is one database file shared by any number of sessions.
type DB struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	var version int
	err := db.QueryRow("SELECT version FROM schema_version").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = db.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion)
		return err
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version > currentSchemaVersion:
		return diag.Errorf(diag.StoSchema, source.Position{}, "database schema %d is newer than %d", version, currentSchemaVersion)
	}
	return nil
}

// NewSession starts a session under a fresh time-ordered id.
func (d *DB) NewSession() (*Store, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	if _, err := d.db.Exec("INSERT INTO sessions (id, created_at) VALUES (?, ?)", id.String(), time.Now().Unix()); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return newStore(d.db, id), nil
}

// Session reopens an existing session. Allocation resumes after the highest
// id already written.
func (d *DB) Session(id uuid.UUID) (*Store, error) {
	var n int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM sessions WHERE id = ?", id.String()).Scan(&n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("unknown session %s", id)
	}
	s := newStore(d.db, id)
	var maxID sql.NullInt64
	if err := d.db.QueryRow("SELECT MAX(id) FROM definitions WHERE session = ?", id.String()).Scan(&maxID); err != nil {
		return nil, err
	}
	if maxID.Valid {
		if err := s.setNext(maxID.Int64); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Sessions lists the session ids in creation order.
func (d *DB) Sessions() ([]uuid.UUID, error) {
	rows, err := d.db.Query("SELECT id FROM sessions ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("bad session id %q: %w", raw, err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
