package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore provides SQLite-backed persistence for key-value pairs.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and creates the table if it doesn't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createKVTable(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func createKVTable(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Get returns the value stored under key.
func (s *SQLiteStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query key: %w", err)
	}
	return value, true, nil
}

// GetMany returns the values present for keys, read in one transaction.
func (s *SQLiteStore) GetMany(keys ...string) (map[string]string, error) {
	found := make(map[string]string, len(keys))
	err := s.inTx(func(tx *sql.Tx) error {
		for _, key := range keys {
			var value string
			err := tx.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if err != nil {
				return fmt.Errorf("query key: %w", err)
			}
			found[key] = value
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Set stores value under key, replacing any previous value.
func (s *SQLiteStore) Set(key, value string) error {
	return s.SetMany(map[string]string{key: value})
}

// SetMany upserts every pair in one transaction.
func (s *SQLiteStore) SetMany(values map[string]string) error {
	now := time.Now()
	return s.inTx(func(tx *sql.Tx) error {
		for key, value := range values {
			_, err := tx.Exec(
				`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				key, value, now,
			)
			if err != nil {
				return fmt.Errorf("upsert key: %w", err)
			}
		}
		return nil
	})
}

// Remove deletes keys in one transaction. Removing a missing key is not an error.
func (s *SQLiteStore) Remove(keys ...string) error {
	return s.inTx(func(tx *sql.Tx) error {
		for _, key := range keys {
			if _, err := tx.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
				return fmt.Errorf("delete key: %w", err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) inTx(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
