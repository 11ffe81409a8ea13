package models

import "time"

// ArtifactType is the closed enumeration of artifact kinds a pipeline step
// can produce or consume.
type ArtifactType string

const (
	ArtifactFetchIssue      ArtifactType = "fetch-issue"
	ArtifactClassify        ArtifactType = "classify"
	ArtifactPlan            ArtifactType = "plan"
	ArtifactImplement       ArtifactType = "implement"
	ArtifactCodeReview      ArtifactType = "code-review"
	ArtifactReviewFix       ArtifactType = "review-fix"
	ArtifactCodeQuality     ArtifactType = "code-quality"
	ArtifactAcceptance      ArtifactType = "acceptance"
	ArtifactComposeRequest  ArtifactType = "compose-request"
	ArtifactGhPullRequest   ArtifactType = "gh-pull-request"
	ArtifactGlabPullRequest ArtifactType = "glab-pull-request"
	ArtifactFetchPatch      ArtifactType = "fetch-patch"
	ArtifactPatchPlan       ArtifactType = "patch-plan"
	ArtifactPatchAcceptance ArtifactType = "patch-acceptance"
	ArtifactGitSetup        ArtifactType = "git-setup"
	ArtifactComposeCommits  ArtifactType = "compose-commits"
)

// AllArtifactTypes lists every registered artifact type in declaration
// order, for operator tooling that enumerates the full set.
func AllArtifactTypes() []ArtifactType {
	return []ArtifactType{
		ArtifactFetchIssue, ArtifactClassify, ArtifactPlan, ArtifactImplement,
		ArtifactCodeReview, ArtifactReviewFix, ArtifactCodeQuality, ArtifactAcceptance,
		ArtifactComposeRequest, ArtifactGhPullRequest, ArtifactGlabPullRequest,
		ArtifactFetchPatch, ArtifactPatchPlan, ArtifactPatchAcceptance,
		ArtifactGitSetup, ArtifactComposeCommits,
	}
}

// SharedArtifactTypes are readable from a parent workflow directory on local
// miss. PatchSpecificArtifactTypes never fall back to the parent.
var SharedArtifactTypes = map[ArtifactType]bool{
	ArtifactFetchIssue:      true,
	ArtifactClassify:        true,
	ArtifactPlan:            true,
	ArtifactComposeRequest:  true,
	ArtifactGhPullRequest:   true,
	ArtifactGlabPullRequest: true,
}

var PatchSpecificArtifactTypes = map[ArtifactType]bool{
	ArtifactPatchPlan:       true,
	ArtifactPatchAcceptance: true,
	ArtifactImplement:       true,
	ArtifactCodeReview:      true,
	ArtifactReviewFix:       true,
	ArtifactCodeQuality:     true,
	ArtifactAcceptance:      true,
}

// IsShared reports whether t may be satisfied from a parent workflow.
func (t ArtifactType) IsShared() bool { return SharedArtifactTypes[t] }

// IsPatchSpecific reports whether t must never be read from a parent workflow.
func (t ArtifactType) IsPatchSpecific() bool { return PatchSpecificArtifactTypes[t] }

// Artifact is a typed payload persisted per workflow. Fields is the
// type-specific payload, kept as a generic map so the store can read/write
// any artifact type uniformly; individual steps read the keys they need
// straight from Fields (see internal/steps/adw).
type Artifact struct {
	WorkflowID   string                 `json:"workflow_id"`
	ArtifactType ArtifactType           `json:"artifact_type"`
	CreatedAt    time.Time              `json:"created_at"`
	Fields       map[string]interface{} `json:"fields"`
}
