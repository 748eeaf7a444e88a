// Package kvstore is the local key-value persistence used for the daily
// usage baseline. Reads and writes are best-effort: storage failures are
// logged and swallowed so callers can degrade instead of failing.
package kvstore

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const timeFormat = "2006-01-02 15:04:05"

// Entry is one stored value.
type Entry struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SQLite stores entries in a single kv_store table.
type SQLite struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*SQLite, error) {
	if err := ensureDirectory(path); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		log.Printf("[KV] Could not enable WAL mode: %v", err)
	}

	return New(db)
}

// New wraps an open database, creating the table if it does not exist.
func New(db *sql.DB) (*SQLite, error) {
	if err := InitTable(db); err != nil {
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// InitTable creates the kv_store table.
func InitTable(db *sql.DB) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS kv_store (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create kv_store table: %w", err)
	}
	return nil
}

func ensureDirectory(path string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}
	return nil
}

// Lookup returns the entry for key, or nil if it does not exist.
func (s *SQLite) Lookup(key string) (*Entry, error) {
	var e Entry
	var updatedAt string
	err := s.db.QueryRow(`
		SELECT key, value, COALESCE(updated_at, '')
		FROM kv_store WHERE key = ?`, key).Scan(&e.Key, &e.Value, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	e.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)
	return &e, nil
}

// Put upserts key.
func (s *SQLite) Put(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`, key, value)
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

// remove deletes key. Removing a missing key is not an error.
func (s *SQLite) remove(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Get returns the value for key. Read errors are logged and reported as a
// missing key.
func (s *SQLite) Get(key string) (string, bool) {
	e, err := s.Lookup(key)
	if err != nil {
		log.Printf("[KV] %v", err)
		return "", false
	}
	if e == nil {
		return "", false
	}
	return e.Value, true
}

// Set stores value under key, logging and swallowing failures.
func (s *SQLite) Set(key, value string) {
	if err := s.Put(key, value); err != nil {
		log.Printf("[KV] %v", err)
	}
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Memory is an in-process store, used by tests and as a fallback when the
// database cannot be opened.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get returns the value for key.
func (m *Memory) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key.
func (m *Memory) Set(key, value string) {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
}
