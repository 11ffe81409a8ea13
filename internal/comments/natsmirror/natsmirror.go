// Package natsmirror publishes inserted comments onto a NATS subject so
// external observers (a TUI, a dashboard) can follow a run live without
// polling the issue store.
package natsmirror

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/cloudshipai/adw/internal/logging"
	"github.com/cloudshipai/adw/pkg/models"
)

// Mirror publishes comments to subject adw.issues.<issue_id>.comments.
// It implements comments.Mirror.
type Mirror struct {
	conn *nats.Conn
}

// Connect dials url and returns a Mirror. Callers are expected to treat a
// connect failure as non-fatal and simply run without a mirror.
func Connect(url string) (*Mirror, error) {
	conn, err := nats.Connect(url, nats.Name("adw-comments-mirror"))
	if err != nil {
		return nil, fmt.Errorf("natsmirror: failed to connect to %s: %w", url, err)
	}
	return &Mirror{conn: conn}, nil
}

// Close closes the underlying connection without draining it.
func (m *Mirror) Close() {
	if m.conn == nil {
		return
	}
	m.conn.Close()
}

// Publish sends comment as JSON to its issue's subject. Marshal or publish
// failures are logged and swallowed, per the Mirror contract.
func (m *Mirror) Publish(comment models.Comment) {
	subject := fmt.Sprintf("adw.issues.%d.comments", comment.IssueID)

	data, err := json.Marshal(comment)
	if err != nil {
		logging.Warn("natsmirror: failed to marshal comment for issue %d: %v", comment.IssueID, err)
		return
	}

	if err := m.conn.Publish(subject, data); err != nil {
		logging.Warn("natsmirror: failed to publish comment for issue %d: %v", comment.IssueID, err)
	}
}
