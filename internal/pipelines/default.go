package pipelines

import (
	"github.com/cloudshipai/adw/internal/config"
	"github.com/cloudshipai/adw/internal/steps"
)

// RegisterDefaults registers the three named pipelines: main, patch, and
// codereview. main is platform-conditional: it appends gh-pull-request or
// glab-pull-request depending on config.Platform, omitting the PR step
// entirely for an unsupported/unset platform.
func RegisterDefaults(r *Registry) {
	r.Register(Definition{
		TypeID:      "main",
		Description: "Classify, plan, implement, review, and open a pull request for a fresh issue.",
		Build: func(platform config.Platform) []string {
			pipeline := []string{
				steps.NameGitSetup,
				steps.NameFetchIssue,
				steps.NameClassify,
				steps.NamePlan,
				steps.NameImplement,
				steps.NameCodeReview,
				steps.NameReviewFix,
				steps.NameCodeQuality,
				steps.NameAcceptance,
				steps.NameComposeRequest,
			}
			switch platform {
			case config.PlatformGitHub:
				pipeline = append(pipeline, steps.NameGhPullRequest)
			case config.PlatformGitLab:
				pipeline = append(pipeline, steps.NameGlabPullRequest)
			default:
				// unsupported/unset: PR creation step is omitted entirely,
				// not run-and-skipped.
			}
			return pipeline
		},
	})

	r.Register(Definition{
		TypeID:      "patch",
		Description: "Apply a follow-up change against a prior workflow's shared artifacts.",
		Build: func(platform config.Platform) []string {
			return []string{
				steps.NameFetchPatch,
				steps.NamePatchPlan,
				steps.NameImplement,
				steps.NameCodeReview,
				steps.NameReviewFix,
				steps.NameCodeQuality,
				steps.NamePatchAcceptance,
				steps.NameComposeCommits,
			}
		},
	})

	r.Register(Definition{
		TypeID:      "codereview",
		Description: "Standalone review/fix/quality loop with no owning issue.",
		Build: func(platform config.Platform) []string {
			return []string{
				steps.NameCodeReview,
				steps.NameReviewFix,
				steps.NameCodeQuality,
			}
		},
	})
}
