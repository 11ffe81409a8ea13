package adw

import (
	"github.com/cloudshipai/adw/internal/steps"
	"github.com/cloudshipai/adw/pkg/models"
)

// Options carries the construction-time parameters steps need beyond Deps:
// filesystem roots and CLI overrides that don't belong on every step.
type Options struct {
	AppRoot              string
	CoderabbitExecutable string
	DefaultGitBranch     string
	AllowDestructiveGit  bool
}

// RegisterMain registers every step the "main" pipeline uses against
// registry, with the dependency/output/criticality metadata each step needs
// for dependency resolution and rerun targeting.
func RegisterMain(registry *steps.Registry, deps Deps, opts Options) error {
	reviewCLI := NewCodeReview(deps, opts.CoderabbitExecutable, opts.AppRoot)

	entries := []struct {
		step         steps.Step
		slug         string
		dependencies []models.ArtifactType
		outputs      []models.ArtifactType
		isCritical   bool
		description  string
	}{
		{NewGitSetup(deps, opts.AppRoot, opts.DefaultGitBranch, opts.AllowDestructiveGit), steps.SlugGitSetup,
			nil, []models.ArtifactType{models.ArtifactGitSetup}, true, "Prepares a working branch for the issue."},
		{NewFetchIssue(deps), steps.SlugFetchIssue,
			nil, []models.ArtifactType{models.ArtifactFetchIssue}, true, "Loads the owning issue record."},
		{NewClassify(deps), steps.SlugClassify,
			[]models.ArtifactType{models.ArtifactFetchIssue}, []models.ArtifactType{models.ArtifactClassify}, true, "Classifies the issue by type and complexity."},
		{NewPlan(deps), steps.SlugPlan,
			[]models.ArtifactType{models.ArtifactFetchIssue, models.ArtifactClassify}, []models.ArtifactType{models.ArtifactPlan}, true, "Builds an implementation plan."},
		{NewImplement(deps), steps.SlugImplement,
			[]models.ArtifactType{models.ArtifactPlan, models.ArtifactPatchPlan}, []models.ArtifactType{models.ArtifactImplement}, true, "Implements the plan (main pipeline) or patch plan (patch pipeline)."},
		{reviewCLI, steps.SlugCodeReview,
			[]models.ArtifactType{models.ArtifactImplement}, []models.ArtifactType{models.ArtifactCodeReview}, false, "Runs the coderabbit review CLI."},
		{NewReviewFix(deps), steps.SlugReviewFix,
			[]models.ArtifactType{models.ArtifactCodeReview}, []models.ArtifactType{models.ArtifactReviewFix}, false, "Addresses review findings."},
		{NewCodeQuality(deps), steps.SlugCodeQuality,
			[]models.ArtifactType{models.ArtifactImplement}, []models.ArtifactType{models.ArtifactCodeQuality}, false, "Runs linters and type-checkers."},
		{NewAcceptance(deps), steps.SlugAcceptance,
			[]models.ArtifactType{models.ArtifactPlan, models.ArtifactImplement}, []models.ArtifactType{models.ArtifactAcceptance}, false, "Validates acceptance criteria."},
		{NewComposeRequest(deps), steps.SlugComposeRequest,
			[]models.ArtifactType{models.ArtifactPlan, models.ArtifactImplement}, []models.ArtifactType{models.ArtifactComposeRequest}, true, "Composes pull request metadata."},
		{NewGhPullRequest(deps), steps.SlugGhPullRequest,
			[]models.ArtifactType{models.ArtifactComposeRequest}, []models.ArtifactType{models.ArtifactGhPullRequest}, false, "Opens a GitHub pull request."},
		{NewGlabPullRequest(deps), steps.SlugGlabPullRequest,
			[]models.ArtifactType{models.ArtifactComposeRequest}, []models.ArtifactType{models.ArtifactGlabPullRequest}, false, "Opens a GitLab merge request."},
	}

	for _, e := range entries {
		if err := registry.Register(e.step, e.slug, e.dependencies, e.outputs, e.isCritical, e.description); err != nil {
			return err
		}
	}
	return nil
}

// RegisterPatch registers the patch-pipeline-specific steps not already
// covered by RegisterMain. implement, code-review, review-fix, and
// code-quality are shared registrations: RegisterMain must run first (or
// the patch pipeline must not be built until it has).
func RegisterPatch(registry *steps.Registry, deps Deps) error {
	entries := []struct {
		step         steps.Step
		slug         string
		dependencies []models.ArtifactType
		outputs      []models.ArtifactType
		isCritical   bool
		description  string
	}{
		{NewFetchPatch(deps), steps.SlugFetchPatch,
			nil, []models.ArtifactType{models.ArtifactFetchPatch}, true, "Loads the patch request for a prior workflow."},
		{NewPatchPlan(deps), steps.SlugPatchPlan,
			[]models.ArtifactType{models.ArtifactFetchPatch}, []models.ArtifactType{models.ArtifactPatchPlan}, true, "Builds a plan for the patch request."},
		{NewPatchAcceptance(deps), steps.SlugPatchAcceptance,
			[]models.ArtifactType{models.ArtifactPatchPlan, models.ArtifactImplement}, []models.ArtifactType{models.ArtifactPatchAcceptance}, false, "Validates patch acceptance criteria."},
		{NewComposeCommits(deps), steps.SlugComposeCommits,
			[]models.ArtifactType{models.ArtifactImplement}, []models.ArtifactType{models.ArtifactComposeCommits}, true, "Composes and pushes patch commits."},
	}

	for _, e := range entries {
		if err := registry.Register(e.step, e.slug, e.dependencies, e.outputs, e.isCritical, e.description); err != nil {
			return err
		}
	}
	return nil
}
