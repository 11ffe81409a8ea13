// Package steps implements a declarative step registry: a dependency graph
// of pipeline stages and the artifact types they consume and produce, with
// topological dependency resolution.
package steps

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cloudshipai/adw/internal/runctx"
	"github.com/cloudshipai/adw/pkg/models"
)

// Step is the common interface every pipeline step implements.
type Step interface {
	// Name is the step's human label; it is used for logging and for
	// resolving rerun_from targets. It is stable across registrations.
	Name() string
	Run(ctx context.Context, wfCtx *runctx.WorkflowContext) (models.StepResult, error)
}

// Metadata is the registry entry for one step.
type Metadata struct {
	Step         Step
	Slug         string
	Dependencies []models.ArtifactType
	Outputs      []models.ArtifactType
	IsCritical   bool
	Description  string
}

// Registry is a dependency-graph-aware collection of registered steps.
// Construct one with NewRegistry (the zero value's maps are nil). There is
// no process-global instance: callers and tests each build their own, so
// cases don't leak state into each other.
type Registry struct {
	mu         sync.RWMutex
	byName     map[string]*Metadata
	slugToName map[string]string
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:     make(map[string]*Metadata),
		slugToName: make(map[string]string),
	}
}

// ErrDuplicateSlug is returned by Register when slug already names a
// different step.
type ErrDuplicateSlug struct {
	Slug         string
	ExistingStep string
}

func (e *ErrDuplicateSlug) Error() string {
	return fmt.Sprintf("steps: slug %q is already registered to step %q", e.Slug, e.ExistingStep)
}

// Register adds step to the registry under the given kebab-case slug.
// Re-registering the same slug for the same step name replaces that step's
// metadata; a different step name under an already-used slug is an error.
func (r *Registry) Register(step Step, slug string, dependencies, outputs []models.ArtifactType, isCritical bool, description string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := step.Name()

	if existing, ok := r.slugToName[slug]; ok && existing != name {
		return &ErrDuplicateSlug{Slug: slug, ExistingStep: existing}
	}
	r.slugToName[slug] = name

	r.byName[name] = &Metadata{
		Step:         step,
		Slug:         slug,
		Dependencies: dependencies,
		Outputs:      outputs,
		IsCritical:   isCritical,
		Description:  description,
	}
	return nil
}

// GetBySlug returns the step registered under slug, if any.
func (r *Registry) GetBySlug(slug string) (*Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.slugToName[slug]
	if !ok {
		return nil, false
	}
	m, ok := r.byName[name]
	return m, ok
}

// GetByName returns the step registered under name, if any.
func (r *Registry) GetByName(name string) (*Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byName[name]
	return m, ok
}

// ProducersOf returns every registered step name whose Outputs include t, in
// a stable (sorted) order.
func (r *Registry) ProducersOf(t models.ArtifactType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for name, m := range r.byName {
		for _, o := range m.Outputs {
			if o == t {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}

// ConsumersOf returns every registered step name whose Dependencies include
// t, in a stable (sorted) order.
func (r *Registry) ConsumersOf(t models.ArtifactType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for name, m := range r.byName {
		for _, d := range m.Dependencies {
			if d == t {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}

// ErrCycle is returned by ResolveDependencies when the producer graph
// contains a cycle reachable from stepName.
type ErrCycle struct {
	Path []string
}

func (e *ErrCycle) Error() string {
	return fmt.Sprintf("steps: dependency cycle detected: %v", e.Path)
}

// ResolveDependencies returns every step upstream of stepName, in an order
// where each step's producers precede it (a topological sort over the
// artifact-producer graph). stepName itself is excluded. Ties among several
// producers of the same artifact type are broken by sorted step name, so the
// result is reproducible within a run.
func (r *Registry) ResolveDependencies(stepName string) ([]string, error) {
	visited := make(map[string]int) // 0=unvisited, 1=in-progress, 2=done
	var order []string
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch visited[name] {
		case 2:
			return nil
		case 1:
			return &ErrCycle{Path: append(append([]string{}, path...), name)}
		}
		visited[name] = 1
		path = append(path, name)

		m, ok := r.GetByName(name)
		if ok {
			for _, dep := range m.Dependencies {
				for _, producer := range r.ProducersOf(dep) {
					if producer == name {
						continue
					}
					if err := visit(producer); err != nil {
						return err
					}
				}
			}
		}

		path = path[:len(path)-1]
		visited[name] = 2
		if name != stepName {
			order = append(order, name)
		}
		return nil
	}

	if err := visit(stepName); err != nil {
		return nil, err
	}
	return order, nil
}

// Validate walks every registered step, reporting unresolved dependencies
// (no registered producer) and cycles. An empty slice means the registry is
// healthy.
func (r *Registry) Validate() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)

	var issues []string
	for _, name := range names {
		m, _ := r.GetByName(name)
		for _, dep := range m.Dependencies {
			if len(r.ProducersOf(dep)) == 0 {
				issues = append(issues, fmt.Sprintf("step %q depends on artifact %q which no registered step produces", name, dep))
			}
		}
		if _, err := r.ResolveDependencies(name); err != nil {
			issues = append(issues, fmt.Sprintf("step %q: %v", name, err))
		}
	}
	return issues
}
