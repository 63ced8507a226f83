package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"quaderno/internal/application"
	"quaderno/internal/domain"
	"quaderno/internal/ports"
)

const schemaVersion = "1"

// Store implements ports.PageStore using SQLite. Every write is checked
// against the stored revision inside a transaction.
type Store struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// Ensure Store implements PageStore
var _ ports.PageStore = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithClock sets the clock used for last-modified stamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open opens or creates the page database at path
func Open(path string, opts ...Option) (*Store, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// immediate transactions take the write lock up front, so two savers
	// never both pass the revision check
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;

		CREATE TABLE IF NOT EXISTS pages (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			value TEXT NOT NULL,
			is_journal INTEGER NOT NULL DEFAULT 0,
			deleted INTEGER NOT NULL DEFAULT 0,
			revision INTEGER NOT NULL,
			last_modified INTEGER NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_pages_live_title
			ON pages(user_id, title) WHERE deleted = 0;
		CREATE INDEX IF NOT EXISTS idx_pages_modified
			ON pages(user_id, last_modified);
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', '` + schemaVersion + `');
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	s := &Store{db: db, dbPath: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.dbPath
}

// Save writes a page if req.ExpectedRevision matches the stored revision.
// ExpectedRevision 0 creates the page.
func (s *Store) Save(ctx context.Context, req ports.SaveRequest) (int64, error) {
	var next int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var current int64
		err := tx.QueryRowContext(ctx, `SELECT revision FROM pages WHERE id = ?`, req.PageID).Scan(&current)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if current != req.ExpectedRevision {
			return &domain.ConflictError{
				PageID:           req.PageID,
				Code:             domain.CodeStaleRevision,
				ExpectedRevision: req.ExpectedRevision,
				CurrentRevision:  current,
			}
		}

		next = current + 1
		_, err = tx.ExecContext(ctx, `
			INSERT INTO pages (id, user_id, title, value, is_journal, deleted, revision, last_modified)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				user_id = excluded.user_id,
				title = excluded.title,
				value = excluded.value,
				is_journal = excluded.is_journal,
				deleted = excluded.deleted,
				revision = excluded.revision,
				last_modified = excluded.last_modified
		`, req.PageID, req.UserID, req.Title, req.Value, req.IsJournal, req.Deleted, next, s.now().UnixNano())
		if isUniqueViolation(err) {
			return &domain.ConflictError{
				PageID:           req.PageID,
				Code:             domain.CodeUniqueViolation,
				ExpectedRevision: req.ExpectedRevision,
				CurrentRevision:  current,
			}
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// Get returns a page by ID, soft-deleted pages included
func (s *Store) Get(ctx context.Context, pageID string) (*domain.Page, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, value, is_journal, deleted, revision, last_modified
		FROM pages WHERE id = ?
	`, pageID)
	p, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &application.NotFoundError{Kind: "page", Ref: pageID}
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Fetch returns every live page owned by userID, sorted by title
func (s *Store) Fetch(ctx context.Context, userID string) ([]domain.Page, error) {
	return s.query(ctx, `
		SELECT id, user_id, title, value, is_journal, deleted, revision, last_modified
		FROM pages WHERE user_id = ? AND deleted = 0
		ORDER BY title
	`, userID)
}

// FetchSince returns pages modified after since, deleted ones included
func (s *Store) FetchSince(ctx context.Context, userID string, since time.Time) ([]domain.Page, error) {
	return s.query(ctx, `
		SELECT id, user_id, title, value, is_journal, deleted, revision, last_modified
		FROM pages WHERE user_id = ? AND last_modified > ?
		ORDER BY title
	`, userID, since.UnixNano())
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]domain.Page, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []domain.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *p)
	}
	return pages, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPage(row scanner) (*domain.Page, error) {
	var p domain.Page
	var modified int64
	if err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Value, &p.IsJournal, &p.Deleted, &p.RevisionNumber, &modified); err != nil {
		return nil, err
	}
	p.LastModified = time.Unix(0, modified).UTC()
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
