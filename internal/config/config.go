// Package config loads the pipeline's runtime configuration from environment
// variables via spf13/viper, following a single bound Config struct with
// viper.SetDefault for every default value.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/cloudshipai/adw/internal/logging"
)

// Platform selects which VCS-hosting CLI the PR/MR steps target.
type Platform string

const (
	PlatformGitHub Platform = "github"
	PlatformGitLab Platform = "gitlab"
	PlatformUnset  Platform = "unset"
)

// Config is the process-wide configuration surface, bound once at startup.
type Config struct {
	// Issue store access
	SupabaseURL            string
	SupabaseServiceRoleKey string
	DatabaseURL            string

	// Platform selection
	Platform Platform

	// Credentials forwarded to PR/MR creation and push
	GitHubPAT string
	GitLabPAT string

	// Provider selection for the implement step, with fallback to "claude"
	ImplementProvider string
	AgentProvider     string

	// Git setup
	DefaultGitBranch       string
	AllowDestructiveGitOps bool

	// Timeouts (seconds)
	WorkflowTimeoutSeconds   int
	CoderabbitTimeoutSeconds int

	// Agent CLI executable overrides
	ClaudeCodePath string
	OpenCodePath   string

	// Pipeline driver override (env var, then PATH, then a known fallback)
	AdwCommand string

	// Data root / working directory
	DataDir string
	AppRoot string

	// Feature flag enabling registry-based pipeline resolution
	WorkflowRegistryFlag bool

	// Optional best-effort comment mirror
	NATSURL string
}

const (
	defaultWorkflowTimeoutSeconds   = 3600
	defaultCoderabbitTimeoutSeconds = 600
	defaultPollIntervalSeconds      = 10
	// MaxIterationBudget caps how many times a rerun_from target step runs in
	// total, its first run included, so at most MaxIterationBudget-1
	// re-entries are honoured.
	MaxIterationBudget = 5
	// GitPushTimeoutSeconds bounds a git push subprocess.
	GitPushTimeoutSeconds = 60
	// PlatformCLITimeoutSeconds bounds gh/glab subprocess calls.
	PlatformCLITimeoutSeconds = 120
)

// Load reads configuration from the environment via viper.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	v.SetDefault("DEFAULT_GIT_BRANCH", "main")
	v.SetDefault("WORKFLOW_TIMEOUT_SECONDS", defaultWorkflowTimeoutSeconds)
	v.SetDefault("CODERABBIT_TIMEOUT_SECONDS", defaultCoderabbitTimeoutSeconds)
	v.SetDefault("DEV_SEC_OPS_PLATFORM", "unset")
	v.SetDefault("IMPLEMENT_PROVIDER", "")
	v.SetDefault("AGENT_PROVIDER", "")

	cfg := &Config{
		SupabaseURL:            v.GetString("SUPABASE_URL"),
		SupabaseServiceRoleKey: v.GetString("SUPABASE_SERVICE_ROLE_KEY"),
		DatabaseURL:            v.GetString("DATABASE_URL"),
		Platform:               Platform(strings.ToLower(v.GetString("DEV_SEC_OPS_PLATFORM"))),
		GitHubPAT:              v.GetString("GITHUB_PAT"),
		GitLabPAT:              v.GetString("GITLAB_PAT"),
		ImplementProvider:      v.GetString("IMPLEMENT_PROVIDER"),
		AgentProvider:          v.GetString("AGENT_PROVIDER"),
		DefaultGitBranch:       v.GetString("DEFAULT_GIT_BRANCH"),
		AllowDestructiveGitOps: v.GetBool("ALLOW_DESTRUCTIVE_GIT_OPS"),
		ClaudeCodePath:         v.GetString("CLAUDE_CODE_PATH"),
		OpenCodePath:           v.GetString("OPENCODE_PATH"),
		AdwCommand:             v.GetString("ADW_COMMAND"),
		DataDir:                v.GetString("DATA_DIR"),
		AppRoot:                v.GetString("APP_ROOT"),
		WorkflowRegistryFlag:   v.GetBool("WORKFLOW_REGISTRY_FLAG"),
		NATSURL:                v.GetString("NATS_URL"),
	}

	switch cfg.Platform {
	case PlatformGitHub, PlatformGitLab, PlatformUnset:
	default:
		cfg.Platform = PlatformUnset
	}

	cfg.WorkflowTimeoutSeconds = parsePositiveIntEnv(v, "WORKFLOW_TIMEOUT_SECONDS", defaultWorkflowTimeoutSeconds)
	cfg.CoderabbitTimeoutSeconds = parsePositiveIntEnv(v, "CODERABBIT_TIMEOUT_SECONDS", defaultCoderabbitTimeoutSeconds)

	return cfg, nil
}

// parsePositiveIntEnv validates a numeric env var, falling back to def with
// a warning when the value is invalid or non-positive.
func parsePositiveIntEnv(v *viper.Viper, key string, def int) int {
	raw := v.GetString(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		logging.Warn("config: invalid %s=%q, falling back to %d", key, raw, def)
		return def
	}
	return n
}

// ResolveProvider applies the provider-selection fallback chain:
// step-specific selector -> global selector -> default "claude".
func ResolveProvider(stepSpecific, global string) string {
	if stepSpecific != "" {
		return stepSpecific
	}
	if global != "" {
		return global
	}
	return "claude"
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{platform=%s, workflow_timeout=%ds, coderabbit_timeout=%ds}",
		c.Platform, c.WorkflowTimeoutSeconds, c.CoderabbitTimeoutSeconds)
}
