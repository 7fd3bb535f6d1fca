// Package datastore optionally records search results into a local
// SQLite database so runs can be inspected with sqlite3 or Datasette.
// It is a write-only sink: the search itself never reads from it.
package datastore

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const resultsSchema = `CREATE TABLE IF NOT EXISTS book_prices (
		id INTEGER PRIMARY KEY,
		searched_at TEXT,
		query TEXT,
		query_mode TEXT,
		store TEXT,
		title TEXT,
		price TEXT,
		url TEXT,
		isbn TEXT
	)`

// Row is one stored result.
type Row struct {
	Query     string
	QueryMode string
	Store     string
	Title     string
	Price     string
	URL       string
	ISBN      string
}

// SQLiteStore appends result rows to a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the database and ensures the schema.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(resultsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveResults inserts all rows in one transaction, stamped with the
// current time.
func (s *SQLiteStore) SaveResults(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// No-op after a successful commit.
		_ = tx.Rollback()
	}()

	stmt, err := tx.Prepare(`INSERT INTO book_prices
		(searched_at, query, query_mode, store, title, price, url, isbn)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	searchedAt := time.Now().UTC().Format(time.RFC3339)
	for _, row := range rows {
		if _, err := stmt.Exec(searchedAt, row.Query, row.QueryMode, row.Store, row.Title, row.Price, row.URL, row.ISBN); err != nil {
			return fmt.Errorf("failed to insert result for %s: %w", row.Store, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
