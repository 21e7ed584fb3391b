package pipeline

import (
	"fmt"

	integrationerrors "github.com/allenshie/integration-core/errors"
)

// entry pairs an instantiated pipeline task with its configured default sleep.
type entry struct {
	task         *PipelineTask
	defaultSleep *float64
}

// Registry maps phase to (PipelineTask instance, default sleep). Built once
// by InitPipelineTask from the schedule JSON and immutable thereafter.
type Registry struct {
	entries map[string]entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register binds phase to task with an optional default sleep.
func (r *Registry) Register(phase string, task *PipelineTask, defaultSleep *float64) {
	r.entries[phase] = entry{task: task, defaultSleep: defaultSleep}
}

// Get returns the pipeline task and default sleep for phase, or
// errors.ErrUnknownPhase-wrapping error if phase was never registered.
func (r *Registry) Get(phase string) (*PipelineTask, *float64, error) {
	e, ok := r.entries[phase]
	if !ok {
		return nil, nil, fmt.Errorf("pipeline registry: no pipeline registered for phase %q: %w", phase, integrationerrors.ErrUnknownPhase)
	}
	return e.task, e.defaultSleep, nil
}

// Names returns the set of phases with a registered pipeline.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}
