// Package comments implements best-effort progress and artifact comment
// insertion. A failure here must never abort the pipeline: every public
// function swallows its own errors and reports them back as a status
// instead of propagating.
package comments

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudshipai/adw/internal/issuestore"
	"github.com/cloudshipai/adw/internal/logging"
	"github.com/cloudshipai/adw/pkg/models"
)

// Status is the outcome of a best-effort comment insertion.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Mirror optionally republishes every inserted comment elsewhere (a NATS
// subject, for example). It must not block or fail the notifier on error.
type Mirror interface {
	Publish(comment models.Comment)
}

// Notifier inserts progress and artifact comments through an issuestore.Store.
type Notifier struct {
	Store  issuestore.Store
	Mirror Mirror // optional
}

// New builds a Notifier. mirror may be nil.
func New(store issuestore.Store, mirror Mirror) *Notifier {
	return &Notifier{Store: store, Mirror: mirror}
}

// Payload is the loosely-typed shape emitted by steps and stream handlers;
// IssueID is a pointer because standalone codereview runs have no issue.
type Payload struct {
	IssueID *int64
	AdwID   string
	Message string
	Raw     map[string]interface{}
	Source  models.CommentSource
	Type    string
}

// EmitCommentFromPayload inserts a comment row for payload. It is skipped
// (not an error) when payload.IssueID is nil.
func (n *Notifier) EmitCommentFromPayload(ctx context.Context, payload Payload) (Status, string) {
	if payload.IssueID == nil {
		return StatusSkipped, "comments: no issue id on payload, skipping"
	}

	var adwID *string
	if payload.AdwID != "" {
		adwID = &payload.AdwID
	}

	comment := models.Comment{
		IssueID: *payload.IssueID,
		Comment: payload.Message,
		Raw:     payload.Raw,
		Source:  payload.Source,
		Type:    payload.Type,
		AdwID:   adwID,
	}

	return n.insert(ctx, comment)
}

// EmitArtifactComment inserts a comment recording that artifact was written,
// with its fields serialised into raw.artifact.
func (n *Notifier) EmitArtifactComment(ctx context.Context, issueID int64, adwID string, artifact models.Artifact) (Status, string) {
	raw := map[string]interface{}{"artifact": artifact.Fields}

	comment := models.Comment{
		IssueID: issueID,
		Comment: fmt.Sprintf("Saved artifact: %s", artifact.ArtifactType),
		Raw:     raw,
		Source:  models.CommentSourceArtifact,
		Type:    string(artifact.ArtifactType),
		AdwID:   &adwID,
	}

	return n.insert(ctx, comment)
}

func (n *Notifier) insert(ctx context.Context, comment models.Comment) (Status, string) {
	inserted, err := n.Store.InsertComment(ctx, comment)
	if err != nil {
		logging.Warn("comments: failed to insert comment for issue %d: %v", comment.IssueID, err)
		return StatusError, fmt.Sprintf("comments: failed to insert comment: %v", err)
	}

	if n.Mirror != nil {
		safeMirror(n.Mirror, inserted)
	}

	return StatusSuccess, "comments: inserted"
}

func safeMirror(m Mirror, comment models.Comment) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("comments: mirror panicked: %v", r)
		}
	}()
	m.Publish(comment)
}

// MakeProgressCommentHandler builds a StreamHandler-shaped closure (see
// internal/agent.StreamHandler) that turns raw agent output lines into
// progress comments. Handler errors never escape — per-line failures are
// logged and the stream keeps flowing.
func (n *Notifier) MakeProgressCommentHandler(ctx context.Context, issueID *int64, adwID, provider string) func(line string) {
	return func(line string) {
		if issueID == nil || line == "" {
			return
		}
		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			raw = map[string]interface{}{"raw_line": line}
		}
		n.EmitCommentFromPayload(ctx, Payload{
			IssueID: issueID,
			AdwID:   adwID,
			Message: fmt.Sprintf("%s progress", provider),
			Raw:     raw,
			Source:  models.CommentSourceAgent,
			Type:    provider,
		})
	}
}
