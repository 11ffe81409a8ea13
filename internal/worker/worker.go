// Package worker implements the polling daemon that claims pending issues
// from an issuestore.Store and spawns the pipeline driver subprocess for
// each one, the long-running counterpart to a single `cmd/adw` invocation.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cloudshipai/adw/internal/adwutil"
	"github.com/cloudshipai/adw/internal/issuestore"
	"github.com/cloudshipai/adw/internal/logging"
	"github.com/cloudshipai/adw/pkg/models"
)

// Worker polls store for pending issues and drives the pipeline binary
// against each one it claims.
type Worker struct {
	cfg     Config
	store   issuestore.Store
	driver  []string
	appRoot string

	janitor *cron.Cron
}

// Option configures optional Worker behavior beyond its required Config and
// Store.
type Option func(*Worker)

// WithJanitor attaches a cron-scheduled artifact-store janitor, run on
// schedule (standard 5-field cron syntax) to prune workflow directories
// older than retention.
func WithJanitor(workflowsDir string, schedule string, retention time.Duration) Option {
	return func(w *Worker) {
		c := cron.New()
		_, err := c.AddFunc(schedule, func() {
			pruned, err := PruneWorkflows(workflowsDir, retention)
			if err != nil {
				logging.Error("worker: janitor run failed: %v", err)
				return
			}
			if pruned > 0 {
				logging.Info("worker: janitor pruned %d workflow directories older than %s", pruned, retention)
			}
		})
		if err != nil {
			logging.Error("worker: failed to schedule janitor %q: %v", schedule, err)
			return
		}
		w.janitor = c
	}
}

// New builds a Worker. driverCommand is the resolved argv prefix used to
// invoke the pipeline binary (see ResolveDriverCommand); appRoot is the
// working directory the driver subprocess runs in.
func New(cfg Config, store issuestore.Store, driverCommand []string, appRoot string, opts ...Option) (*Worker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(driverCommand) == 0 {
		return nil, fmt.Errorf("worker: driver command must not be empty")
	}

	w := &Worker{cfg: cfg, store: store, driver: driverCommand, appRoot: appRoot}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// ResolveDriverCommand picks the argv prefix used to invoke the pipeline
// driver: an explicit override, else a binary named "adw" found on PATH,
// else "go run ./cmd/adw" against the module root as a last resort.
func ResolveDriverCommand(override string) []string {
	if override != "" {
		return []string{override}
	}
	if path, err := exec.LookPath("adw"); err == nil {
		return []string{path}
	}
	return []string{"go", "run", "./cmd/adw"}
}

// Run starts the janitor (if configured) and enters the main poll loop,
// returning when ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w.cfg.WorkingDir != "" {
		if err := os.Chdir(w.cfg.WorkingDir); err != nil {
			return fmt.Errorf("worker: failed to chdir to %s: %w", w.cfg.WorkingDir, err)
		}
		logging.Info("worker: working directory set to %s", w.cfg.WorkingDir)
	}

	if w.janitor != nil {
		w.janitor.Start()
		defer w.janitor.Stop()
	}

	logging.Info("worker %s starting main loop (poll interval %s)", w.cfg.WorkerID, w.cfg.PollInterval)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info("worker %s stopped", w.cfg.WorkerID)
			return nil
		default:
		}

		issue, err := w.store.LockNext(ctx, w.cfg.WorkerID)
		switch {
		case errors.Is(err, issuestore.ErrNoIssueAvailable):
			select {
			case <-ctx.Done():
				logging.Info("worker %s stopped", w.cfg.WorkerID)
				return nil
			case <-ticker.C:
			}
			continue
		case err != nil:
			logging.Error("worker %s: failed to claim next issue: %v", w.cfg.WorkerID, err)
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
			continue
		}

		w.executeWorkflow(ctx, issue.IssueID, issue.Type, issue.Description)
	}
}

// executeWorkflow spawns the pipeline driver for issueID with a fresh
// adw_id, bounded by the configured workflow timeout, and updates the
// issue's status to completed or back to pending depending on the outcome.
func (w *Worker) executeWorkflow(ctx context.Context, issueID int64, issueType models.IssueType, description string) bool {
	workflowID := adwutil.NewWorkflowID()
	logging.Info("worker %s: executing workflow %s for issue %d", w.cfg.WorkerID, workflowID, issueID)
	logging.Debug("worker %s: issue %d description: %s", w.cfg.WorkerID, issueID, description)

	runCtx, cancel := context.WithTimeout(ctx, w.cfg.WorkflowTimeout)
	defer cancel()

	workflowType := string(issueType)
	if workflowType == "" {
		workflowType = "main"
	}

	argv := append(append([]string{}, w.driver...),
		"--adw-id", workflowID, "--workflow-type", workflowType, fmt.Sprintf("%d", issueID))
	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = w.appRoot
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		logging.Error("worker %s: workflow %s timed out for issue %d", w.cfg.WorkerID, workflowID, issueID)
		w.markPending(ctx, issueID)
		return false
	}

	if err != nil {
		logging.Error("worker %s: workflow %s failed for issue %d: %v", w.cfg.WorkerID, workflowID, issueID, err)
		w.markPending(ctx, issueID)
		return false
	}

	logging.Info("worker %s: workflow %s completed issue %d", w.cfg.WorkerID, workflowID, issueID)
	if err := w.store.UpdateStatus(ctx, issueID, "completed"); err != nil {
		logging.Error("worker %s: failed to mark issue %d completed: %v", w.cfg.WorkerID, issueID, err)
	}
	return true
}

func (w *Worker) markPending(ctx context.Context, issueID int64) {
	if err := w.store.UpdateStatus(ctx, issueID, "pending"); err != nil {
		logging.Error("worker %s: failed to requeue issue %d: %v", w.cfg.WorkerID, issueID, err)
	}
}
