// Package history keeps a local SQLite snapshot of the last upload list seen
// for each account, so the uploads page and CLI have something to show when
// the API is unreachable.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/csvstats/csvstats/internal/api"
)

// FileName is the cache database name inside the csvstats directory.
const FileName = "history.db"

// Cache is a per-email snapshot store.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens the SQLite database at dbPath and creates tables if they don't exist.
func Open(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Cache{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		email TEXT PRIMARY KEY,
		saved_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS uploads (
		email TEXT NOT NULL,
		position INTEGER NOT NULL,
		id INTEGER NOT NULL,
		filename TEXT NOT NULL,
		status TEXT NOT NULL,
		s3_key TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (email, position),
		FOREIGN KEY (email) REFERENCES snapshots(email)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Save replaces the snapshot for email with records, keeping their order.
func (c *Cache) Save(email string, records []api.UploadRecord) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM uploads WHERE email = ?`, email); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO snapshots (email, saved_at) VALUES (?, ?)
		 ON CONFLICT(email) DO UPDATE SET saved_at = excluded.saved_at`,
		email, c.now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO uploads (email, position, id, filename, status, s3_key, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.Exec(
			email, i, r.ID, r.Filename, string(r.Status), r.StorageKey,
			r.CreatedAt.Format(time.RFC3339Nano), r.UpdatedAt.Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert upload %d: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load returns the snapshot for email and when it was saved.
// ok is false when nothing has been saved for email.
func (c *Cache) Load(email string) (records []api.UploadRecord, savedAt time.Time, ok bool, err error) {
	var saved string
	err = c.db.QueryRow(`SELECT saved_at FROM snapshots WHERE email = ?`, email).Scan(&saved)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("query snapshot: %w", err)
	}
	savedAt, err = time.Parse(time.RFC3339Nano, saved)
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("parse saved_at: %w", err)
	}

	rows, err := c.db.Query(
		`SELECT id, filename, status, s3_key, created_at, updated_at
		 FROM uploads WHERE email = ? ORDER BY position ASC`,
		email,
	)
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("query uploads: %w", err)
	}
	defer rows.Close()

	records = []api.UploadRecord{}
	for rows.Next() {
		var (
			r                api.UploadRecord
			status           string
			created, updated string
		)
		if err := rows.Scan(&r.ID, &r.Filename, &status, &r.StorageKey, &created, &updated); err != nil {
			return nil, time.Time{}, false, fmt.Errorf("scan upload: %w", err)
		}
		r.Status = api.UploadStatus(status)
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, time.Time{}, false, fmt.Errorf("parse created_at: %w", err)
		}
		if r.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, time.Time{}, false, fmt.Errorf("parse updated_at: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, false, fmt.Errorf("iterate uploads: %w", err)
	}

	return records, savedAt, true, nil
}

// Clear drops the snapshot for email.
func (c *Cache) Clear(email string) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM uploads WHERE email = ?`, email); err != nil {
		return fmt.Errorf("delete uploads: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM snapshots WHERE email = ?`, email); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return tx.Commit()
}
