package pipeline

import "fmt"

// Selection is the pipeline name and metadata returned by a Selector.
// Metadata may carry "phase_changed" (bool, triggers phase-change dispatch
// if not already triggered by the phase engine) and "sleep" (float64,
// overrides the registry default for the next interval).
type Selection struct {
	PipelineName string
	Metadata     map[string]any
}

// Sleep reads metadata["sleep"], if present.
func (s Selection) Sleep() (float64, bool) {
	if s.Metadata == nil {
		return 0, false
	}
	v, ok := s.Metadata["sleep"]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// Selector picks the pipeline name to run for the current phase. It is
// authoritative on pipeline name; the phase Engine remains authoritative
// on phase itself.
type Selector interface {
	Select(phase string, ctx *Context) Selection
}

// WorkingHoursSelector is the default: it simply passes the phase name
// through as the pipeline name.
type WorkingHoursSelector struct{}

func (WorkingHoursSelector) Select(phase string, _ *Context) Selection {
	return Selection{PipelineName: phase, Metadata: map[string]any{}}
}

// SelectorFactory builds a Selector; used by the compile-time plugin registry.
type SelectorFactory func() (Selector, error)

var selectorRegistry = map[string]SelectorFactory{
	"working_hours": func() (Selector, error) { return WorkingHoursSelector{}, nil },
}

// RegisterSelector adds or overrides a named selector factory.
func RegisterSelector(name string, factory SelectorFactory) {
	selectorRegistry[name] = factory
}

// BuildSelector resolves name (PIPELINE_SELECTOR_CLASS, defaulting to
// "working_hours") against the compile-time registry.
func BuildSelector(name string) (Selector, error) {
	if name == "" {
		name = "working_hours"
	}
	factory, ok := selectorRegistry[name]
	if !ok {
		return nil, fmt.Errorf("pipeline: unresolved selector class %q", name)
	}
	return factory()
}
