package steps

// Canonical step names, used both as the Step.Name() return value and as
// rerun_from targets. Plan and code-review carry the exact strings a
// rerun_from target must match ("Building implementation plan",
// "Generating CodeRabbit review").
const (
	NameGitSetup        = "Setting up git"
	NameFetchIssue      = "Fetching issue"
	NameFetchPatch      = "Fetching patch"
	NameClassify        = "Classifying issue"
	NamePlan            = "Building implementation plan"
	NamePatchPlan       = "Building patch plan"
	NameImplement       = "Implementing"
	NameCodeReview      = "Generating CodeRabbit review"
	NameReviewFix       = "Addressing review feedback"
	NameCodeQuality     = "Running code quality checks"
	NameAcceptance      = "Validating acceptance criteria"
	NamePatchAcceptance = "Validating patch acceptance criteria"
	NameComposeRequest  = "Composing pull request metadata"
	NameGhPullRequest   = "Creating GitHub pull request"
	NameGlabPullRequest = "Creating GitLab merge request"
	NameComposeCommits  = "Composing patch commits"
)

// Slugs, the globally unique kebab-case identifiers each step is registered
// under. rerun_from targets use the step names above, not slugs.
const (
	SlugGitSetup        = "git-setup"
	SlugFetchIssue      = "fetch-issue"
	SlugFetchPatch      = "fetch-patch"
	SlugClassify        = "classify"
	SlugPlan            = "plan"
	SlugPatchPlan       = "patch-plan"
	SlugImplement       = "implement"
	SlugCodeReview      = "code-review"
	SlugReviewFix       = "review-fix"
	SlugCodeQuality     = "code-quality"
	SlugAcceptance      = "acceptance"
	SlugPatchAcceptance = "patch-acceptance"
	SlugComposeRequest  = "compose-request"
	SlugGhPullRequest   = "gh-pull-request"
	SlugGlabPullRequest = "glab-pull-request"
	SlugComposeCommits  = "compose-commits"
)
