// Package pipelines implements a named, ordered workflow registry: pipelines
// are lists of step names resolved against an internal/steps.Registry at
// construction time, with platform-conditional composition for the "main"
// pipeline.
package pipelines

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cloudshipai/adw/internal/config"
	"github.com/cloudshipai/adw/internal/steps"
)

// Factory builds a WorkflowDefinition's step list at pipeline-construction
// time; used for the "main" pipeline's platform-conditional PR step.
type Factory func(platform config.Platform) []string

// Definition is a named, ordered pipeline.
type Definition struct {
	TypeID      string
	Description string
	Build       Factory
}

// Registry holds named WorkflowDefinitions.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]*Definition
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Definition)}
}

// Register adds or replaces a WorkflowDefinition.
func (r *Registry) Register(def Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := def
	r.byID[def.TypeID] = &d
}

// IsRegistered reports whether typeID names a registered pipeline.
func (r *Registry) IsRegistered(typeID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[typeID]
	return ok
}

// ListTypes returns every registered pipeline type ID, sorted.
func (r *Registry) ListTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ErrUnknownPipeline is returned by GetPipeline for an unregistered type.
type ErrUnknownPipeline struct{ TypeID string }

func (e *ErrUnknownPipeline) Error() string {
	return fmt.Sprintf("pipelines: unknown workflow type %q", e.TypeID)
}

// GetPipeline instantiates the step-name list for typeID, evaluating its
// Factory against platform. The caller resolves step names against an
// internal/steps.Registry to get concrete Step instances.
func (r *Registry) GetPipeline(typeID string, platform config.Platform) ([]string, error) {
	r.mu.RLock()
	def, ok := r.byID[typeID]
	r.mu.RUnlock()
	if !ok {
		return nil, &ErrUnknownPipeline{TypeID: typeID}
	}
	return def.Build(platform), nil
}

// StepsFor resolves a pipeline's step names into steps.Metadata, in order,
// against registry. Missing steps are an error (a programming error: every
// pipeline-listed step must be registered).
func StepsFor(names []string, registry *steps.Registry) ([]*steps.Metadata, error) {
	resolved := make([]*steps.Metadata, 0, len(names))
	for _, name := range names {
		m, ok := registry.GetByName(name)
		if !ok {
			return nil, fmt.Errorf("pipelines: step %q is listed in a pipeline but not registered", name)
		}
		resolved = append(resolved, m)
	}
	return resolved, nil
}
