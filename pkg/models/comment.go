package models

import "time"

// CommentSource tags who produced a Comment row.
type CommentSource string

const (
	CommentSourceSystem   CommentSource = "system"
	CommentSourceAgent    CommentSource = "agent"
	CommentSourceArtifact CommentSource = "artifact"
)

// Comment is an append-only log row attached to an Issue. The (Source, Type)
// tuple is informative only; no invariant is enforced on it.
type Comment struct {
	ID      int64                  `json:"id"`
	IssueID int64                  `json:"issue_id"`
	Comment string                 `json:"comment"`
	Raw     map[string]interface{} `json:"raw,omitempty"`
	Source  CommentSource          `json:"source"`
	Type    string                 `json:"type"`
	AdwID   *string                `json:"adw_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
