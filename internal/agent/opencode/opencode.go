// Package opencode implements the streaming agent.Provider: a subprocess
// invocation of the OpenCode CLI that emits line-delimited JSON on stdout as
// the run progresses, with the result determined only once the process
// exits and the output file is parsed back.
package opencode

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/cloudshipai/adw/internal/agent"
	"github.com/cloudshipai/adw/internal/logging"
)

// Provider invokes the OpenCode CLI and streams its JSONL output.
type Provider struct {
	// ExecutablePath is the opencode binary, defaulting to "opencode".
	ExecutablePath string
	// AgentsDir is the base directory raw_output.jsonl files are written
	// under when a request does not set OutputPath.
	AgentsDir string
}

// New builds a Provider. executablePath defaults to "opencode" if empty.
func New(executablePath, agentsDir string) *Provider {
	if executablePath == "" {
		executablePath = "opencode"
	}
	return &Provider{ExecutablePath: executablePath, AgentsDir: agentsDir}
}

const defaultModel = "zai-coding-plan/glm-4.6"

// Execute runs the OpenCode CLI, streaming stdout lines to stream as they
// arrive, and returns the parsed result once the process exits.
func (p *Provider) Execute(ctx context.Context, req agent.Request, stream agent.StreamHandler) (agent.Response, error) {
	outputFile := req.OutputPath
	if outputFile == "" {
		outputFile = filepath.Join(p.AgentsDir, req.AdwID, req.AgentName, "raw_output.jsonl")
	}
	if dir := filepath.Dir(outputFile); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return agent.Response{}, fmt.Errorf("opencode: failed to create output directory %s: %w", dir, err)
		}
	}

	model, _ := req.ProviderOptions["model"].(string)
	if model == "" {
		model = defaultModel
	}

	cmd := exec.CommandContext(ctx, p.ExecutablePath,
		"run", "--model", model, "--command", "implement", "--format", "json", req.Prompt)
	cmd.Env = filteredEnv()

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return agent.Response{}, fmt.Errorf("opencode: failed to open stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return agent.Response{}, fmt.Errorf("opencode: failed to open stderr pipe: %w", err)
	}

	outFile, err := os.Create(outputFile)
	if err != nil {
		return agent.Response{}, fmt.Errorf("opencode: failed to create output file %s: %w", outputFile, err)
	}

	if err := cmd.Start(); err != nil {
		outFile.Close()
		return agent.Response{}, fmt.Errorf("opencode: failed to start process: %w", err)
	}

	var wg sync.WaitGroup
	var stderrLines []string

	wg.Add(2)
	go func() {
		defer wg.Done()
		streamStdout(stdoutPipe, outFile, stream)
	}()
	go func() {
		defer wg.Done()
		stderrLines = captureStderr(stderrPipe)
	}()

	runErr := cmd.Wait()
	wg.Wait()
	outFile.Close()

	returnCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			returnCode = exitErr.ExitCode()
		} else {
			returnCode = -1
		}
	}

	messages, resultMessage := parseJSONL(outputFile)
	convertJSONLToJSON(outputFile, messages)

	if resultMessage == nil {
		for i := len(messages) - 1; i >= 0; i-- {
			if messages[i]["type"] == "result" || messages[i]["session_id"] != nil {
				resultMessage = messages[i]
				break
			}
		}
	}

	if returnCode == 0 {
		return successResponse(outputFile, messages, resultMessage), nil
	}
	return errorResponse(outputFile, returnCode, stderrLines, messages, resultMessage), nil
}

func streamStdout(pipe io.Reader, outFile *os.File, stream agent.StreamHandler) {
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		fmt.Fprintln(outFile, line)
		if stream != nil {
			safeStream(stream, line)
		}
	}
}

func safeStream(stream agent.StreamHandler, line string) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("opencode: stream handler panicked: %v", r)
		}
	}()
	stream(line)
}

func captureStderr(pipe io.Reader) []string {
	var lines []string
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func parseJSONL(path string) ([]map[string]interface{}, map[string]interface{}) {
	f, err := os.Open(path)
	if err != nil {
		logging.Error("opencode: failed to open JSONL output %s: %v", path, err)
		return nil, nil
	}
	defer f.Close()

	var messages []map[string]interface{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var msg map[string]interface{}
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			logging.Warn("opencode: skipping malformed JSON line: %v", err)
			continue
		}
		messages = append(messages, msg)
	}

	var result map[string]interface{}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i]["type"] == "result" {
			result = messages[i]
			break
		}
	}
	return messages, result
}

// convertJSONLToJSON writes a parallel .json array file for operator
// inspection, alongside the raw .jsonl stream.
func convertJSONLToJSON(jsonlPath string, messages []map[string]interface{}) {
	jsonPath := jsonlPath
	if len(jsonPath) > 6 && jsonPath[len(jsonPath)-6:] == ".jsonl" {
		jsonPath = jsonPath[:len(jsonPath)-6] + ".json"
	} else {
		jsonPath += ".json"
	}

	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		logging.Error("opencode: failed to marshal JSON array for %s: %v", jsonlPath, err)
		return
	}
	if err := os.WriteFile(jsonPath, data, 0o600); err != nil {
		logging.Error("opencode: failed to write %s: %v", jsonPath, err)
	}
}

func successResponse(outputFile string, messages []map[string]interface{}, resultMessage map[string]interface{}) agent.Response {
	if resultMessage != nil {
		isError, _ := resultMessage["is_error"].(bool)
		resultText, _ := resultMessage["result"].(string)
		sessionID, _ := resultMessage["session_id"].(string)
		resp := agent.Response{
			Output:        resultText,
			Success:       !isError,
			SessionID:     sessionID,
			RawOutputPath: outputFile,
		}
		if isError {
			resp.ErrorDetail = resultText
		}
		return resp
	}

	if len(messages) > 0 {
		encoded, _ := json.Marshal(messages[len(messages)-1])
		return agent.Response{Output: string(encoded), Success: true, RawOutputPath: outputFile}
	}

	raw, err := os.ReadFile(outputFile)
	if err != nil {
		return agent.Response{Success: true, RawOutputPath: outputFile}
	}
	return agent.Response{Output: string(raw), Success: true, RawOutputPath: outputFile}
}

func errorResponse(outputFile string, returnCode int, stderrLines []string, messages []map[string]interface{}, resultMessage map[string]interface{}) agent.Response {
	errorDetail := joinLines(stderrLines)
	var sessionID string

	switch {
	case resultMessage != nil:
		if sid, ok := resultMessage["session_id"].(string); ok {
			sessionID = sid
		}
		if text, ok := resultMessage["result"].(string); ok && text != "" {
			errorDetail = text
		}
	case len(messages) > 0:
		last := messages[len(messages)-1]
		if text, ok := last["result"].(string); ok && text != "" {
			errorDetail = text
		} else if text, ok := last["error"].(string); ok && text != "" {
			errorDetail = text
		} else {
			encoded, _ := json.Marshal(last)
			errorDetail = string(encoded)
		}
	default:
		if raw, err := os.ReadFile(outputFile); err == nil && len(raw) > 0 {
			errorDetail = string(raw)
		}
	}

	if errorDetail == "" {
		errorDetail = fmt.Sprintf("process exited with code %d", returnCode)
	}

	rawPath := ""
	if _, err := os.Stat(outputFile); err == nil {
		rawPath = outputFile
	}

	return agent.Response{
		Output:        "opencode: " + errorDetail,
		Success:       false,
		SessionID:     sessionID,
		RawOutputPath: rawPath,
		ErrorDetail:   errorDetail,
	}
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

func filteredEnv() []string {
	keep := []string{"OPENCODE_API_KEY", "OPENCODE_PATH", "HOME", "USER", "PATH", "SHELL", "TERM"}
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
