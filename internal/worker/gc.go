package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cloudshipai/adw/internal/logging"
)

// PruneWorkflows removes workflow directories under workflowsDir whose most
// recent artifact is older than retention, returning the number pruned.
// Directories with no entries inside, or that cannot be read, are left
// alone.
func PruneWorkflows(workflowsDir string, retention time.Duration) (int, error) {
	entries, err := os.ReadDir(workflowsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("worker: failed to list workflows directory %s: %w", workflowsDir, err)
	}

	cutoff := time.Now().Add(-retention)
	pruned := 0

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(workflowsDir, entry.Name())

		newest, ok := newestModTime(dir)
		if !ok {
			continue
		}
		if newest.After(cutoff) {
			continue
		}

		if err := os.RemoveAll(dir); err != nil {
			logging.Warn("worker: janitor failed to remove %s: %v", dir, err)
			continue
		}
		logging.Debug("worker: janitor pruned workflow directory %s (last written %s)", dir, newest)
		pruned++
	}

	return pruned, nil
}

func newestModTime(dir string) (time.Time, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return time.Time{}, false
	}

	var newest time.Time
	found := false
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !found || info.ModTime().After(newest) {
			newest = info.ModTime()
			found = true
		}
	}
	return newest, found
}
