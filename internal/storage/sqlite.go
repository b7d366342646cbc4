package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// ErrDuplicatePage is returned when a page URL is already stored
var ErrDuplicatePage = errors.New("page already stored")

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT,
		url TEXT UNIQUE NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	`

	_, err := s.db.Exec(schema)
	return err
}

// InsertPage inserts a single page row. A page whose URL is already stored
// returns ErrDuplicatePage.
func (s *Storage) InsertPage(ctx context.Context, record PageRecord) error {
	_, err := s.db.ExecContext(ctx, "INSERT INTO pages (title, url) VALUES (?, ?)", record.Title, record.URL)
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return ErrDuplicatePage
	}
	return fmt.Errorf("failed to insert page: %w", err)
}

// UploadPages inserts every record, counting duplicate URLs as redundant
// instead of failing. progress, when set, is called after each record.
func (s *Storage) UploadPages(ctx context.Context, records []PageRecord, progress func(done, total int)) (UploadResult, error) {
	var result UploadResult

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		err := s.InsertPage(ctx, record)
		switch {
		case err == nil:
			result.Added++
		case errors.Is(err, ErrDuplicatePage):
			result.Redundant++
		default:
			return result, err
		}

		if progress != nil {
			progress(i+1, len(records))
		}
	}

	return result, nil
}

// UploadProgressLogger returns an UploadPages progress callback that logs
// once per 10% step
func UploadProgressLogger() func(done, total int) {
	lastStep := -1
	return func(done, total int) {
		if total <= 0 {
			return
		}
		percent := done * 100 / total
		if step := percent / 10; step != lastStep {
			lastStep = step
			logrus.Infof("Upload progress: %d%% (%d/%d)", percent, done, total)
		}
	}
}

// CountPages returns the number of stored pages
func (s *Storage) CountPages() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM pages").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return count, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
