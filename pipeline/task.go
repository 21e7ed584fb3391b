package pipeline

// Result is the outcome of one Task.Run call. Payload["sleep"], when present
// as a float64, overrides the registry default for the next loop interval.
type Result struct {
	OK      bool
	Payload map[string]any
}

// Sleep reads payload["sleep"] as a float64 seconds value, if present.
func (r Result) Sleep() (float64, bool) {
	if r.Payload == nil {
		return 0, false
	}
	v, ok := r.Payload["sleep"]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// Task is one pipeline node. A task may short-circuit the pipeline by
// returning OK=false, in which case downstream tasks in the same pipeline
// are skipped, but the outer workflow continues on the next tick.
type Task interface {
	Run(ctx *Context) (Result, error)
}

// PipelineTask is a composite that iterates its tasks in order, merging
// payloads shallowly (last-writer-wins on keys) and stopping at the first
// OK=false or error.
type PipelineTask struct {
	Name  string
	Tasks []Task
}

// Run executes every task in order until one short-circuits or errors.
func (p *PipelineTask) Run(ctx *Context) (Result, error) {
	merged := Result{OK: true, Payload: map[string]any{}}

	for _, task := range p.Tasks {
		result, err := task.Run(ctx)
		if err != nil {
			return merged, err
		}
		for k, v := range result.Payload {
			merged.Payload[k] = v
		}
		if !result.OK {
			merged.OK = false
			return merged, nil
		}
	}

	return merged, nil
}
