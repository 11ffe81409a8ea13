// Package sqlitestore is a pure-Go issuestore.Store backed by
// modernc.org/sqlite, for local development and tests where a hosted
// Postgres instance (the production issue store) isn't available.
//
// SQLite has no server-side SELECT ... FOR UPDATE SKIP LOCKED. LockNext
// approximates it with an ordinary (deferred, not BEGIN IMMEDIATE)
// transaction that selects the oldest pending issue and updates its status
// before committing. The store keeps a single pooled connection, so LockNext
// calls through one Store run one at a time; a claimer in another process
// sharing the database file cannot commit a claim on the same row, but may
// fail with a busy error instead of claiming one. That is a weaker guarantee
// than SKIP LOCKED under heavy worker concurrency, but matches this store's
// role as a single-node development fallback.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cloudshipai/adw/internal/issuestore"
	"github.com/cloudshipai/adw/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS issues (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT,
	description TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	type TEXT NOT NULL DEFAULT 'main',
	adw_id TEXT,
	branch TEXT,
	assigned_to TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS comments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	issue_id INTEGER NOT NULL REFERENCES issues(id),
	comment TEXT NOT NULL,
	raw TEXT,
	source TEXT NOT NULL,
	type TEXT NOT NULL,
	adw_id TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store is a sqlite-backed issuestore.Store.
type Store struct {
	conn *sql.DB
}

// Open creates (or reuses) a sqlite database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlitestore: failed to create database directory %s: %w", dir, err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1) // sqlite: serialize writers to avoid SQLITE_BUSY storms

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("sqlitestore: failed to enable foreign keys: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("sqlitestore: failed to set busy timeout: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlitestore: failed to apply schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

func (s *Store) Close() error { return s.conn.Close() }

// LockNext claims the oldest pending issue assigned to workerID (or
// unassigned, for single-worker dev setups), transitioning it to "started".
func (s *Store) LockNext(ctx context.Context, workerID string) (issuestore.LockedIssue, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return issuestore.LockedIssue{}, fmt.Errorf("sqlitestore: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, description, status, type FROM issues
		WHERE status = 'pending' AND (assigned_to IS NULL OR assigned_to = ?)
		ORDER BY created_at ASC
		LIMIT 1
	`, workerID)

	var locked issuestore.LockedIssue
	var rawStatus, rawType string
	if err := row.Scan(&locked.IssueID, &locked.Description, &rawStatus, &rawType); err != nil {
		if err == sql.ErrNoRows {
			return issuestore.LockedIssue{}, issuestore.ErrNoIssueAvailable
		}
		return issuestore.LockedIssue{}, fmt.Errorf("sqlitestore: failed to query next issue: %w", err)
	}
	locked.Type = models.IssueType(rawType)

	if _, err := tx.ExecContext(ctx, `
		UPDATE issues SET status = 'started', assigned_to = ?, updated_at = ? WHERE id = ?
	`, workerID, time.Now().UTC(), locked.IssueID); err != nil {
		return issuestore.LockedIssue{}, fmt.Errorf("sqlitestore: failed to lock issue %d: %w", locked.IssueID, err)
	}

	if err := tx.Commit(); err != nil {
		return issuestore.LockedIssue{}, fmt.Errorf("sqlitestore: failed to commit lock transaction: %w", err)
	}

	locked.Status = models.IssueStatusStarted
	return locked, nil
}

func (s *Store) Get(ctx context.Context, issueID int64) (models.Issue, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, title, description, status, type, adw_id, branch, assigned_to, created_at, updated_at
		FROM issues WHERE id = ?
	`, issueID)

	var issue models.Issue
	var rawStatus string
	var title, adwID, branch, assignedTo sql.NullString
	if err := row.Scan(&issue.ID, &title, &issue.Description, &rawStatus, &issue.Type, &adwID, &branch, &assignedTo, &issue.CreatedAt, &issue.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return models.Issue{}, issuestore.ErrIssueNotFound
		}
		return models.Issue{}, fmt.Errorf("sqlitestore: failed to get issue %d: %w", issueID, err)
	}
	issue.Status = models.NormalizeIssueStatus(rawStatus)
	if title.Valid {
		issue.Title = &title.String
	}
	if adwID.Valid {
		issue.AdwID = &adwID.String
	}
	if branch.Valid {
		issue.Branch = &branch.String
	}
	if assignedTo.Valid {
		issue.AssignedTo = &assignedTo.String
	}
	return issue, nil
}

func (s *Store) UpdateStatus(ctx context.Context, issueID int64, status models.IssueStatus) error {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE issues SET status = ?, updated_at = ? WHERE id = ?
	`, string(status), time.Now().UTC(), issueID)
	if err != nil {
		return fmt.Errorf("sqlitestore: failed to update status for issue %d: %w", issueID, err)
	}
	return checkRowAffected(res, issueID)
}

func (s *Store) SetWorkflowID(ctx context.Context, issueID int64, adwID string) error {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE issues SET adw_id = ?, updated_at = ? WHERE id = ?
	`, adwID, time.Now().UTC(), issueID)
	if err != nil {
		return fmt.Errorf("sqlitestore: failed to set workflow id for issue %d: %w", issueID, err)
	}
	return checkRowAffected(res, issueID)
}

func (s *Store) InsertComment(ctx context.Context, comment models.Comment) (models.Comment, error) {
	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO comments (issue_id, comment, source, type, adw_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, comment.IssueID, comment.Comment, string(comment.Source), comment.Type, comment.AdwID, time.Now().UTC())
	if err != nil {
		return models.Comment{}, fmt.Errorf("sqlitestore: failed to insert comment for issue %d: %w", comment.IssueID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Comment{}, fmt.Errorf("sqlitestore: failed to read inserted comment id: %w", err)
	}
	comment.ID = id
	return comment, nil
}

func checkRowAffected(res sql.Result, issueID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlitestore: failed to read rows affected: %w", err)
	}
	if n == 0 {
		return issuestore.ErrIssueNotFound
	}
	return nil
}
