package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// KV is the session-scoped key-value persistence used by the stores.
type KV interface {
	GetValue(sessionID, key string) (string, bool, error)
	SetValue(sessionID, key, value string) error
	DeleteValue(sessionID, key string) error
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer; one connection also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS sessions (
        id TEXT PRIMARY KEY, -- UUID
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS session_kv (
        session_id TEXT NOT NULL,
        key TEXT NOT NULL,
        value TEXT NOT NULL,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (session_id, key),
        FOREIGN KEY (session_id) REFERENCES sessions (id)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// Session methods
func (s *SQLiteStore) CreateSession() (*Session, error) {
	sessionID := uuid.NewString()
	stmt, err := s.db.Prepare("INSERT INTO sessions (id, created_at) VALUES (?, ?)")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare session insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	if _, err = stmt.Exec(sessionID, now); err != nil {
		return nil, fmt.Errorf("failed to execute session insert: %w", err)
	}
	return &Session{ID: sessionID, CreatedAt: now}, nil
}

func (s *SQLiteStore) GetSession(sessionID string) (*Session, error) {
	var session Session
	err := s.db.QueryRow("SELECT id, created_at FROM sessions WHERE id = ?", sessionID).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// ClearSession drops every key stored for the session. The session itself stays valid.
func (s *SQLiteStore) ClearSession(sessionID string) error {
	if _, err := s.db.Exec("DELETE FROM session_kv WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to clear session %s: %w", sessionID, err)
	}
	return nil
}

// Key-value methods
func (s *SQLiteStore) GetValue(sessionID, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM session_kv WHERE session_id = ? AND key = ?", sessionID, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s for session %s: %w", key, sessionID, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) SetValue(sessionID, key, value string) error {
	stmt, err := s.db.Prepare(`
        INSERT INTO session_kv (session_id, key, value, updated_at) VALUES (?, ?, ?, ?)
        ON CONFLICT (session_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
    `)
	if err != nil {
		return fmt.Errorf("failed to prepare session_kv upsert: %w", err)
	}
	defer stmt.Close()

	if _, err = stmt.Exec(sessionID, key, value, time.Now()); err != nil {
		return fmt.Errorf("failed to execute session_kv upsert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteValue(sessionID, key string) error {
	if _, err := s.db.Exec("DELETE FROM session_kv WHERE session_id = ? AND key = ?", sessionID, key); err != nil {
		return fmt.Errorf("failed to delete %s for session %s: %w", key, sessionID, err)
	}
	return nil
}
