// Package adwutil holds small shared helpers, cross-cutting pieces that
// don't belong to any one component: workflow ID generation and filesystem
// path derivation.
package adwutil

import (
	"strings"

	"github.com/google/uuid"
)

// patchIDSuffix names a patch workflow, derived from its parent's adw_id.
const patchIDSuffix = "-patch"

// NewWorkflowID generates an opaque adw_id in the short hyphenated form
// used throughout this package (e.g. "adw-1a2b3c4d"): an "adw-" prefix
// followed by an 8-character hex slice of a UUIDv4.
func NewWorkflowID() string {
	id := uuid.New().String()
	return "adw-" + strings.ReplaceAll(id, "-", "")[:8]
}

// PatchWorkflowID derives the patch workflow ID for a given parent adw_id.
func PatchWorkflowID(parentAdwID string) string {
	return parentAdwID + patchIDSuffix
}
