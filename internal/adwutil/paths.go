package adwutil

import (
	"os"
	"path/filepath"
)

// DataRoot resolves the root directory under which workflow artifacts and
// agent logs are persisted, honoring DATA_DIR with a fallback to the current
// working directory's .adw subdirectory.
func DataRoot() string {
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		return dir
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ".adw"
	}
	return filepath.Join(cwd, ".adw")
}

// WorkflowsDir is <data_root>/workflows, the artifact store's base path.
func WorkflowsDir(dataRoot string) string {
	return filepath.Join(dataRoot, "workflows")
}

// AgentLogsDir is <data_root>/agents/logs, the root for prompt mirrors and
// raw agent output.
func AgentLogsDir(dataRoot string) string {
	return filepath.Join(dataRoot, "agents", "logs")
}

// AppRoot resolves the working directory the pipeline driver subprocess
// should run in, honoring APP_ROOT with a fallback to the current directory.
func AppRoot() string {
	if dir := os.Getenv("APP_ROOT"); dir != "" {
		return dir
	}
	cwd, _ := os.Getwd()
	return cwd
}
