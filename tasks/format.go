package tasks

import "github.com/allenshie/integration-core/pipeline"

// FormatStrategy converts tracking output into the shape the rule engine
// consumes. FormatConversionTask uses DefaultFormatStrategy when its
// Strategy is nil, which is how the built-in working pipeline builds it;
// FORMAT_STRATEGY_CLASS is not read, so no environment variable selects
// another strategy.
type FormatStrategy interface {
	BuildPayload(scratch pipeline.Scratch) (any, error)
}

// DefaultFormatStrategy bundles the tick's raw ingredients into one map,
// leaving interpretation to the rule engine.
type DefaultFormatStrategy struct{}

func (DefaultFormatStrategy) BuildPayload(scratch pipeline.Scratch) (any, error) {
	return map[string]any{
		"events":         scratch.Events,
		"local_objects":  scratch.LocalObjects,
		"global_objects": scratch.GlobalObjects,
	}, nil
}

// FormatConversionTask is optional; skipped when FORMAT_TASK_ENABLED=0.
type FormatConversionTask struct {
	Enabled  bool
	Strategy FormatStrategy
}

func (t FormatConversionTask) Run(ctx *pipeline.Context) (pipeline.Result, error) {
	if !t.Enabled {
		return pipeline.Result{OK: true}, nil
	}

	strategy := t.Strategy
	if strategy == nil {
		strategy = DefaultFormatStrategy{}
	}

	payload, err := strategy.BuildPayload(ctx.Scratch)
	if err != nil {
		return pipeline.Result{OK: false}, err
	}

	ctx.Scratch.RulesPayload = payload
	return pipeline.Result{OK: true}, nil
}
