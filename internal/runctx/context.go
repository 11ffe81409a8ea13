// Package runctx defines WorkflowContext, the per-run mutable carrier the
// pipeline runner creates and every step receives. It lives in its own
// package so both internal/steps and internal/runner can depend on it
// without an import cycle.
package runctx

import (
	"sync"

	"github.com/cloudshipai/adw/internal/artifacts"
)

// WorkflowContext is created at run start and discarded at run end; all
// durable state flows through the artifact store, not this struct.
type WorkflowContext struct {
	IssueID          *int64 // optional: standalone codereview runs have no issue
	AdwID            string
	ArtifactStore    *artifacts.Store
	ParentWorkflowID string

	mu   sync.Mutex
	data map[string]interface{}

	// iterations tracks how many times each step name has been re-entered
	// via rerun_from, bounding the review/fix loop.
	iterations map[string]int
}

// New builds a WorkflowContext for a single pipeline run.
func New(adwID string, issueID *int64, store *artifacts.Store, parentWorkflowID string) *WorkflowContext {
	return &WorkflowContext{
		IssueID:          issueID,
		AdwID:            adwID,
		ArtifactStore:    store,
		ParentWorkflowID: parentWorkflowID,
		data:             make(map[string]interface{}),
		iterations:       make(map[string]int),
	}
}

// Get reads a fast-path inter-step value cached during this run.
func (c *WorkflowContext) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

// Set caches a fast-path inter-step value for the duration of this run.
func (c *WorkflowContext) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// Flag is a convenience bool-typed slot, used e.g. for review_is_clean.
func (c *WorkflowContext) Flag(key string) bool {
	v, ok := c.Get(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func (c *WorkflowContext) SetFlag(key string, value bool) {
	c.Set(key, value)
}

// IterationsFor returns how many times stepName has been (re-)entered so far.
func (c *WorkflowContext) IterationsFor(stepName string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.iterations[stepName]
}

// IncrementIteration bumps stepName's iteration counter and returns the new
// value.
func (c *WorkflowContext) IncrementIteration(stepName string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.iterations[stepName]++
	return c.iterations[stepName]
}
