package pipeline

import "fmt"

// BuildRegistry instantiates every pipeline named in sched.Pipelines via the
// compile-time task-factory registry, then populates a Registry keyed by
// phase, using each phase policy's interval_seconds as the default-sleep
// override when present. This is InitPipelineTask: the one-time startup
// step that turns a validated schedule into a ready-to-run registry.
func BuildRegistry(sched *Schedule, deps Dependencies) (*Registry, error) {
	tasksByName := make(map[string]*PipelineTask, len(sched.Pipelines))
	for _, spec := range sched.Pipelines {
		task, err := BuildTask(spec.ClassPath, deps)
		if err != nil {
			return nil, fmt.Errorf("pipeline init: building %q: %w", spec.Name, err)
		}
		tasksByName[spec.Name] = task
	}

	registry := NewRegistry()
	for _, p := range sched.Phases {
		task, ok := tasksByName[p.PipelineName]
		if !ok {
			return nil, fmt.Errorf("pipeline init: phase %q references unbuilt pipeline %q", p.Phase, p.PipelineName)
		}
		registry.Register(p.Phase, task, p.IntervalSeconds)
	}

	return registry, nil
}
