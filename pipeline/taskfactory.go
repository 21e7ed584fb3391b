package pipeline

import "fmt"

// Dependencies bundles everything a TaskFactory needs to build a concrete
// pipeline, so the class-path registry stays free of concrete task imports.
type Dependencies struct {
	MCMOTEnabled  bool
	FormatEnabled bool

	// RuleEngine, DispatchEngine and Metrics are opaque handles built once by
	// the composition root (package main) and type-asserted back to their
	// concrete types inside package tasks' factories. Kept as `any` here so
	// this package never imports tasks or metric. The MC-MOT engine itself
	// travels via Context.MCMOT, not through Dependencies.
	RuleEngine     any
	DispatchEngine any
	Metrics        any
}

// TaskFactory builds a ready-to-run PipelineTask for one schedule entry.
// Keyed by the schedule's "class" string, this is the compile-time stand-in
// for the source's dynamic module:Class resolution.
type TaskFactory func(deps Dependencies) (*PipelineTask, error)

var taskFactoryRegistry = map[string]TaskFactory{}

// RegisterTaskFactory adds or overrides a named pipeline task factory.
// Called from package tasks' init() so this package never imports it.
func RegisterTaskFactory(classPath string, factory TaskFactory) {
	taskFactoryRegistry[classPath] = factory
}

// BuildTask resolves classPath against the compile-time registry.
func BuildTask(classPath string, deps Dependencies) (*PipelineTask, error) {
	factory, ok := taskFactoryRegistry[classPath]
	if !ok {
		return nil, fmt.Errorf("pipeline: unresolved class-path %q", classPath)
	}
	return factory(deps)
}

// KnownClassPaths returns every registered class-path, for schedule
// validation error messages.
func KnownClassPaths() []string {
	names := make([]string, 0, len(taskFactoryRegistry))
	for name := range taskFactoryRegistry {
		names = append(names, name)
	}
	return names
}
