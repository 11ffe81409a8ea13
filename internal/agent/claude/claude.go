// Package claude implements the envelope agent.Provider: a synchronous
// subprocess invocation of the Claude Code CLI that emits a single JSON
// envelope on stdout.
package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cloudshipai/adw/internal/adwutil"
	"github.com/cloudshipai/adw/internal/agent"
	"github.com/cloudshipai/adw/internal/logging"
)

var slashCommandPattern = regexp.MustCompile(`^(/[\w-]+)`)

// Provider invokes the Claude Code CLI in synchronous JSON-envelope mode.
type Provider struct {
	// ExecutablePath is the claude binary, defaulting to "claude" on PATH.
	ExecutablePath string
	// WorkingDir is the repository root the CLI runs in.
	WorkingDir string
	// DataRoot is the base directory for prompt-mirror logs.
	DataRoot string
}

// New builds a Provider. executablePath defaults to "claude" if empty.
func New(executablePath, workingDir, dataRoot string) *Provider {
	if executablePath == "" {
		executablePath = "claude"
	}
	return &Provider{ExecutablePath: executablePath, WorkingDir: workingDir, DataRoot: dataRoot}
}

// envelope mirrors the Claude Code CLI's --output-format json result object.
type envelope struct {
	Type             string      `json:"type"`
	Subtype          string      `json:"subtype"`
	IsError          bool        `json:"is_error"`
	SessionID        string      `json:"session_id"`
	DurationMs       int64       `json:"duration_ms"`
	StructuredOutput interface{} `json:"structured_output"`
	Result           string      `json:"result"`
}

// Execute invokes the CLI synchronously; stream is accepted for interface
// compatibility but unused, since the envelope provider has nothing to
// stream — it only ever produces one line of output, at process exit.
func (p *Provider) Execute(ctx context.Context, req agent.Request, stream agent.StreamHandler) (agent.Response, error) {
	model := req.Model
	if model == "" {
		model = "opus"
	}

	skipPermissions := true
	if v, ok := req.ProviderOptions["dangerously_skip_permissions"].(bool); ok {
		skipPermissions = v
	}
	jsonSchema, _ := req.ProviderOptions["json_schema"].(string)

	if req.AdwID != "" {
		mirrorPrompt(p.DataRoot, req.AdwID, req.AgentName, req.Prompt)
	}

	args := []string{"-p", req.Prompt, "--model", model, "--output-format", "json"}
	if jsonSchema != "" {
		args = append(args, "--json-schema", jsonSchema)
	}
	if skipPermissions {
		args = append(args, "--dangerously-skip-permissions")
	}

	cmd := exec.CommandContext(ctx, p.ExecutablePath, args...)
	cmd.Dir = p.WorkingDir
	cmd.Env = filteredEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	stdoutStr := strings.TrimSpace(stdout.String())
	stderrStr := strings.TrimSpace(stderr.String())

	if stdoutStr == "" {
		detail := stderrStr
		if detail == "" {
			detail = fmt.Sprintf("process exited: %v", runErr)
		}
		return agent.Response{
			Output:      fmt.Sprintf("claude: %s", detail),
			Success:     false,
			ErrorDetail: detail,
		}, nil
	}

	return parseEnvelope(stdoutStr), nil
}

func parseEnvelope(stdout string) agent.Response {
	var env envelope
	if err := json.Unmarshal([]byte(stdout), &env); err != nil {
		detail := fmt.Sprintf("invalid JSON in claude output: %v", err)
		return agent.Response{Output: "claude: " + detail, Success: false, ErrorDetail: detail}
	}

	if env.Type != "result" {
		detail := fmt.Sprintf("expected envelope type \"result\", got %q", env.Type)
		return agent.Response{Output: "claude: " + detail, Success: false, SessionID: env.SessionID, ErrorDetail: detail}
	}

	if env.Subtype != "" && env.Subtype != "success" {
		logging.Warn("claude: returned subtype %q (session_id=%s, duration_ms=%d)", env.Subtype, env.SessionID, env.DurationMs)
	}

	if env.IsError {
		detail := env.Result
		if detail == "" {
			detail = "unknown error"
		}
		return agent.Response{Output: "claude: " + detail, Success: false, SessionID: env.SessionID, ErrorDetail: detail}
	}

	if env.StructuredOutput == nil {
		detail := "missing \"structured_output\" in envelope"
		return agent.Response{Output: "claude: " + detail, Success: false, SessionID: env.SessionID, ErrorDetail: detail}
	}

	var output string
	if s, ok := env.StructuredOutput.(string); ok {
		output = s
	} else {
		encoded, err := json.Marshal(env.StructuredOutput)
		if err != nil {
			detail := fmt.Sprintf("failed to re-serialize structured_output: %v", err)
			return agent.Response{Output: "claude: " + detail, Success: false, SessionID: env.SessionID, ErrorDetail: detail}
		}
		output = string(encoded)
	}

	return agent.Response{Output: output, Success: true, SessionID: env.SessionID}
}

// mirrorPrompt saves prompts beginning with a slash command to
// <data_root>/agents/logs/<adw_id>/<agent_name>/prompts/<command>.txt, for
// operator inspection. Failures are logged, not propagated — mirroring must
// never block an agent run.
func mirrorPrompt(dataRoot, adwID, agentName, prompt string) {
	match := slashCommandPattern.FindString(prompt)
	if match == "" {
		return
	}
	commandName := strings.TrimPrefix(match, "/")

	dir := filepath.Join(adwutil.AgentLogsDir(dataRoot), adwID, agentName, "prompts")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		logging.Warn("claude: failed to create prompt log directory %s: %v", dir, err)
		return
	}

	path := filepath.Join(dir, commandName+".txt")
	if err := os.WriteFile(path, []byte(prompt), 0o600); err != nil {
		logging.Warn("claude: failed to write prompt mirror %s: %v", path, err)
	}
}

// filteredEnv forwards only the environment variables the CLI actually
// requires, rather than the entire parent environment.
func filteredEnv() []string {
	keep := []string{
		"ANTHROPIC_API_KEY",
		"CLAUDE_CODE_PATH",
		"CLAUDE_BASH_MAINTAIN_PROJECT_WORKING_DIR",
		"E2B_API_KEY",
		"HOME",
		"USER",
		"PATH",
		"SHELL",
		"TERM",
	}

	var env []string
	for _, k := range keep {
		if v, ok := os.LookupEnv(k); ok {
			env = append(env, k+"="+v)
		}
	}

	if pat, ok := os.LookupEnv("GITHUB_PAT"); ok {
		env = append(env, "GITHUB_PAT="+pat, "GH_TOKEN="+pat)
	}

	return env
}
