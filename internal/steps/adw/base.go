// Package adw implements the concrete pipeline steps registered against
// internal/steps.Registry: classify, plan, implement, review, quality,
// acceptance, and the VCS-facing compose/PR steps. Each step follows the
// same common shape (load inputs, invoke an agent or external tool, write
// an artifact, emit a comment) described by their shared base helpers here.
package adw

import (
	"context"
	"fmt"

	"github.com/cloudshipai/adw/internal/agent"
	"github.com/cloudshipai/adw/internal/comments"
	"github.com/cloudshipai/adw/internal/config"
	"github.com/cloudshipai/adw/internal/issuestore"
	"github.com/cloudshipai/adw/internal/jsonenvelope"
	"github.com/cloudshipai/adw/internal/runctx"
	"github.com/cloudshipai/adw/pkg/models"
)

// Deps bundles the shared collaborators every step needs: the agent
// provider registry, process configuration, the comment notifier, and the
// issue store (used only by fetch-issue/fetch-patch).
type Deps struct {
	Agents   *agent.Registry
	Config   *config.Config
	Notifier *comments.Notifier
	Issues   issuestore.Store
}

// base holds the fields common to every concrete step.
type base struct {
	deps         Deps
	name         string
	artifactType models.ArtifactType
}

func (b *base) Name() string { return b.name }

// loadField reads field from a previously-produced artifact, preferring the
// workflow context's fast-path cache and falling back to the durable
// artifact store (which applies parent-workflow fallback on its own).
// Successful durable reads are cached back into the fast path.
func loadField(wfCtx *runctx.WorkflowContext, artifactType models.ArtifactType, field string) (interface{}, bool) {
	cacheKey := string(artifactType) + "." + field
	if v, ok := wfCtx.Get(cacheKey); ok {
		return v, true
	}

	art, err := wfCtx.ArtifactStore.Read(artifactType)
	if err != nil {
		return nil, false
	}
	v, ok := art.Fields[field]
	if ok {
		wfCtx.Set(cacheKey, v)
	}
	return v, ok
}

func loadStringField(wfCtx *runctx.WorkflowContext, artifactType models.ArtifactType, field string) (string, bool) {
	v, ok := loadField(wfCtx, artifactType, field)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// writeArtifact persists fields under b's artifact type and emits a
// best-effort "artifact saved" comment; write failures are returned to the
// caller as a step error, comment failures are swallowed by Notifier.
func (b *base) writeArtifact(ctx context.Context, wfCtx *runctx.WorkflowContext, fields map[string]interface{}) (models.Artifact, error) {
	artifact := models.Artifact{
		WorkflowID:   wfCtx.AdwID,
		ArtifactType: b.artifactType,
		Fields:       fields,
	}
	if err := wfCtx.ArtifactStore.Write(artifact); err != nil {
		return models.Artifact{}, fmt.Errorf("failed to write %s artifact: %w", b.artifactType, err)
	}

	if wfCtx.IssueID != nil {
		b.deps.Notifier.EmitArtifactComment(ctx, *wfCtx.IssueID, wfCtx.AdwID, artifact)
	}
	return artifact, nil
}

// progress emits a human-readable progress comment summarising the step,
// best-effort.
func (b *base) progress(ctx context.Context, wfCtx *runctx.WorkflowContext, message string) {
	b.deps.Notifier.EmitCommentFromPayload(ctx, comments.Payload{
		IssueID: wfCtx.IssueID,
		AdwID:   wfCtx.AdwID,
		Message: message,
		Source:  models.CommentSourceSystem,
		Type:    b.name,
	})
}

// runAgent resolves providerName against b.deps.Agents and executes req,
// streaming progress comments through the notifier.
func (b *base) runAgent(ctx context.Context, wfCtx *runctx.WorkflowContext, providerName string, req agent.Request) (agent.Response, error) {
	provider, ok := b.deps.Agents.Get(providerName)
	if !ok {
		return agent.Response{}, fmt.Errorf("no agent provider registered for %q", providerName)
	}

	stream := b.deps.Notifier.MakeProgressCommentHandler(ctx, wfCtx.IssueID, wfCtx.AdwID, providerName)
	return provider.Execute(ctx, req, stream)
}

// parseStructured validates an agent response's output as a required-field
// JSON object, prefixing errors with the step's name.
func (b *base) parseStructured(output string, required map[string]jsonenvelope.FieldKind) jsonenvelope.Result {
	return jsonenvelope.Parse(output, required, b.name)
}
