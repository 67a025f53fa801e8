package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tatianab/potion-shop/internal/logging"
)

// SQLiteStore keeps documents as blobs in a SQLite database, one row per
// save name.
type SQLiteStore struct {
	db       *sql.DB
	name     string
	defaults func() *WorldState
	log      logging.Printer
	now      func() time.Time
}

// OpenSQLite opens (or creates) the database at path and binds the store to
// the save called name.
func OpenSQLite(path, name string, defaults func() *WorldState, log logging.Printer) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if name == "" {
		return nil, fmt.Errorf("empty save name")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if defaults == nil {
		defaults = DefaultWorldState
	}
	return &SQLiteStore{
		db:       db,
		name:     name,
		defaults: defaults,
		log:      logging.OrDiscard(log),
		now:      time.Now,
	}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=FULL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS saves (
		name TEXT PRIMARY KEY,
		doc BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);`)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context) *WorldState {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM saves WHERE name = ?`, s.name).Scan(&doc)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Printf("state: read save %q: %v; starting from default", s.name, err)
		}
		return s.defaults()
	}
	st, err := Decode(doc)
	if err != nil {
		s.log.Printf("state: save %q is corrupt: %v; starting from default", s.name, err)
		return s.defaults()
	}
	return st
}

// Save replaces the stored document for this save name.
func (s *SQLiteStore) Save(ctx context.Context, st *WorldState) error {
	doc, err := Encode(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO saves (name, doc, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		s.name, doc, s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save %q: %w", s.name, err)
	}
	return nil
}
