// Package models holds the data types shared across the ADW orchestrator:
// issues, comments, artifacts, and the small algebraic types steps exchange
// with the pipeline runner.
package models

import (
	"strings"
	"time"
)

// IssueStatus is the closed set of states an Issue can occupy.
type IssueStatus string

const (
	IssueStatusPending   IssueStatus = "pending"
	IssueStatusStarted   IssueStatus = "started"
	IssueStatusCompleted IssueStatus = "completed"
	IssueStatusFailed    IssueStatus = "failed"
)

// legacyIssueStatus maps status values used by an earlier issue-tracking
// scheme onto the canonical set this store now uses. See DESIGN.md.
var legacyIssueStatus = map[string]IssueStatus{
	"patch pending": IssueStatusStarted,
	"patched":       IssueStatusCompleted,
}

// NormalizeIssueStatus maps a raw status string read from storage onto the
// canonical IssueStatus set, translating legacy values on read.
func NormalizeIssueStatus(raw string) IssueStatus {
	if normalized, ok := legacyIssueStatus[raw]; ok {
		return normalized
	}
	return IssueStatus(raw)
}

// IssueType distinguishes a fresh issue from a patch against prior work.
type IssueType string

const (
	IssueTypeMain  IssueType = "main"
	IssueTypePatch IssueType = "patch"
)

// Issue is a single row from the shared issue-record store.
type Issue struct {
	ID          int64       `json:"id"`
	Title       *string     `json:"title,omitempty"`
	Description string      `json:"description"`
	Status      IssueStatus `json:"status"`
	Type        IssueType   `json:"type"`
	AdwID       *string     `json:"adw_id,omitempty"`
	Branch      *string     `json:"branch,omitempty"`
	AssignedTo  *string     `json:"assigned_to,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Validate enforces the model-layer invariants: description is trimmed and
// must be non-empty after trimming.
func (i *Issue) Validate() error {
	i.Description = strings.TrimSpace(i.Description)
	if i.Description == "" {
		return ErrEmptyDescription
	}
	return nil
}

// IsPatchWorkflowID reports whether an adw_id names a patch workflow, by
// the "-patch" suffix convention.
func IsPatchWorkflowID(adwID string) bool {
	return strings.HasSuffix(adwID, patchSuffix)
}

// ParentWorkflowID strips the patch suffix from a patch workflow's adw_id,
// returning ("", false) if adwID does not name a patch workflow.
func ParentWorkflowID(adwID string) (string, bool) {
	if !IsPatchWorkflowID(adwID) {
		return "", false
	}
	return strings.TrimSuffix(adwID, patchSuffix), true
}

const patchSuffix = "-patch"
