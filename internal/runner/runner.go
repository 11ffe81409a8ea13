// Package runner executes an ordered pipeline of steps against a
// runctx.WorkflowContext: the core loop a driven pipeline process runs once
// it has resolved which steps to execute and in what order.
package runner

import (
	"context"
	"fmt"

	"github.com/cloudshipai/adw/internal/config"
	"github.com/cloudshipai/adw/internal/logging"
	"github.com/cloudshipai/adw/internal/runctx"
	"github.com/cloudshipai/adw/internal/steps"
)

// Result is the outcome of a full pipeline run.
type Result struct {
	Success      bool
	FailedStep   string
	FailureError string
}

// Run executes pipeline (a resolved, ordered step list) against wfCtx.
//
// Steps execute strictly in order, except that a step whose StepResult sets
// RerunFrom re-enters the pipeline at the named earlier step. A rerun target
// runs at most config.MaxIterationBudget times in total: once that many
// re-entry requests have been counted, further requests are ignored and the
// run continues forward. A critical step's failure
// aborts the run; a non-critical step's failure is logged and the run
// continues.
func Run(ctx context.Context, pipeline []*steps.Metadata, wfCtx *runctx.WorkflowContext) Result {
	index := make(map[string]int, len(pipeline))
	for i, m := range pipeline {
		index[m.Step.Name()] = i
	}

	for i := 0; i < len(pipeline); i++ {
		m := pipeline[i]
		name := m.Step.Name()

		logging.Info("step-start: %s", logLabel(name, wfCtx))

		result, err := m.Step.Run(ctx, wfCtx)
		if err != nil {
			result.Success = false
			if result.Error == "" {
				result.Error = err.Error()
			}
		}

		logging.Info("step-end: %s success=%t", logLabel(name, wfCtx), result.Success)

		if !result.Success {
			if m.IsCritical {
				logging.Error("step %q failed critically: %s", name, result.Error)
				return Result{Success: false, FailedStep: name, FailureError: result.Error}
			}
			logging.Warn("step %q failed (non-critical), continuing: %s", name, result.Error)
		}

		if result.RerunFrom == "" {
			continue
		}

		targetIdx, ok := index[result.RerunFrom]
		if !ok {
			logging.Warn("step %q requested rerun_from %q, which is not in this pipeline; ignoring", name, result.RerunFrom)
			continue
		}

		iteration := wfCtx.IncrementIteration(result.RerunFrom)
		if iteration >= config.MaxIterationBudget {
			logging.Warn("step %q exceeded rerun budget (%d) re-entering %q; demoting to best-effort success and continuing forward",
				name, config.MaxIterationBudget, result.RerunFrom)
			continue
		}

		logging.Info("rerun: jumping from %q back to %q (iteration %d/%d)", name, result.RerunFrom, iteration, config.MaxIterationBudget)
		i = targetIdx - 1 // loop increment restores targetIdx
	}

	return Result{Success: true}
}

// RunSingleStep executes exactly one step, outside a full pipeline. If the
// step declares dependencies, at least one of its dependency artifact types
// must be readable from wfCtx's store (parent fallback included) before it
// is allowed to run; dependency-free steps (like
// fetch-issue) always proceed.
func RunSingleStep(ctx context.Context, m *steps.Metadata, wfCtx *runctx.WorkflowContext) Result {
	name := m.Step.Name()

	if len(m.Dependencies) > 0 {
		hasAny := false
		for _, dep := range m.Dependencies {
			if _, err := wfCtx.ArtifactStore.Read(dep); err == nil {
				hasAny = true
				break
			}
		}
		if !hasAny {
			msg := fmt.Sprintf("step %q declares dependencies but no matching artifact is present in this workflow", name)
			logging.Error(msg)
			return Result{Success: false, FailedStep: name, FailureError: msg}
		}
	}

	logging.Info("step-start: %s", logLabel(name, wfCtx))
	result, err := m.Step.Run(ctx, wfCtx)
	if err != nil && result.Error == "" {
		result.Error = err.Error()
	}
	logging.Info("step-end: %s success=%t", logLabel(name, wfCtx), result.Success)

	if !result.Success {
		return Result{Success: false, FailedStep: name, FailureError: result.Error}
	}
	return Result{Success: true}
}

func logLabel(stepName string, wfCtx *runctx.WorkflowContext) string {
	if wfCtx.IssueID != nil {
		return fmt.Sprintf("%s (issue=%d adw_id=%s)", stepName, *wfCtx.IssueID, wfCtx.AdwID)
	}
	return fmt.Sprintf("%s (adw_id=%s)", stepName, wfCtx.AdwID)
}
