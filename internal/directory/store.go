package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists resolved display names between runs so repeat runs skip the
// slow directory navigation for names already seen. Only successful
// resolutions and genuine not-found results are stored; transient lookup
// failures never reach it.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// OpenStore opens (creating if needed) the name cache at path.
func OpenStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("directory: creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("directory: opening cache: %w", err)
	}

	store := NewStore(db)
	if err := store.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`PRAGMA busy_timeout = 5000;`,
		`CREATE TABLE IF NOT EXISTS directory_names (
			username TEXT PRIMARY KEY,
			full_name TEXT NOT NULL,
			resolved_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("directory: init cache: %w", err)
		}
	}
	return nil
}

// Get returns the cached name for username, if any.
func (s *Store) Get(ctx context.Context, username string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, nil
	}
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT full_name FROM directory_names WHERE username = ?`, username).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("directory: reading cache: %w", err)
	}
	return name, true, nil
}

// Put records a resolution, replacing any earlier one.
func (s *Store) Put(ctx context.Context, username, fullName string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO directory_names (username, full_name, resolved_at) VALUES (?, ?, ?)
		 ON CONFLICT(username) DO UPDATE SET full_name = excluded.full_name, resolved_at = excluded.resolved_at`,
		username, fullName, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("directory: writing cache: %w", err)
	}
	return nil
}
