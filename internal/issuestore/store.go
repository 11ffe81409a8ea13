// Package issuestore defines the Store interface pipeline steps and the
// worker daemon use to read and mutate issue records, plus a sqlite-backed
// implementation for local development and tests.
package issuestore

import (
	"context"
	"errors"

	"github.com/cloudshipai/adw/pkg/models"
)

// ErrIssueNotFound is returned by Get when no issue exists with the given ID.
var ErrIssueNotFound = errors.New("issuestore: issue not found")

// ErrNoIssueAvailable is returned by LockNext when no pending issue is
// assigned to the requesting worker.
var ErrNoIssueAvailable = errors.New("issuestore: no issue available")

// LockedIssue is the row shape returned by the get_and_lock_next_issue RPC
// contract: enough to spawn a workflow, nothing more.
type LockedIssue struct {
	IssueID     int64
	Description string
	Status      models.IssueStatus
	Type        models.IssueType
}

// Store is the issue-record persistence boundary. Implementations must make
// LockNext atomic with respect to other callers (SELECT ... FOR UPDATE SKIP
// LOCKED or an equivalent), since multiple worker processes call it
// concurrently against the same backing store.
type Store interface {
	// LockNext atomically claims and transitions to "started" the next
	// pending issue assigned to workerID, or returns ErrNoIssueAvailable.
	LockNext(ctx context.Context, workerID string) (LockedIssue, error)

	Get(ctx context.Context, issueID int64) (models.Issue, error)
	UpdateStatus(ctx context.Context, issueID int64, status models.IssueStatus) error
	SetWorkflowID(ctx context.Context, issueID int64, adwID string) error

	InsertComment(ctx context.Context, comment models.Comment) (models.Comment, error)
}
