package tasks

import (
	"github.com/allenshie/integration-core/metric"
	"github.com/allenshie/integration-core/pipeline"
)

// Built-in class-paths a schedule JSON's "pipelines" section may reference,
// resolved at startup against the compile-time registry rather than a
// dynamic module:Class import.
const (
	WorkingPipelineClassPath = "integration.tasks:Working"
	IdlePipelineClassPath    = "integration.tasks:Idle"
)

func init() {
	pipeline.RegisterTaskFactory(WorkingPipelineClassPath, buildWorkingPipeline)
	pipeline.RegisterTaskFactory(IdlePipelineClassPath, buildIdlePipeline)
}

// buildWorkingPipeline assembles the full Ingestion->MCMOT->Format->Rule->
// EventDispatch chain described as the built-in working pipeline.
func buildWorkingPipeline(deps pipeline.Dependencies) (*pipeline.PipelineTask, error) {
	var ruleEngine RuleEngine
	if e, ok := deps.RuleEngine.(RuleEngine); ok {
		ruleEngine = e
	}

	var dispatchEngine DispatchEngine
	if e, ok := deps.DispatchEngine.(DispatchEngine); ok {
		dispatchEngine = e
	}

	var metrics *metric.Metrics
	if m, ok := deps.Metrics.(*metric.Metrics); ok {
		metrics = m
	}

	return &pipeline.PipelineTask{
		Name: "working",
		Tasks: []pipeline.Task{
			IngestionTask{},
			MCMOTTask{Enabled: deps.MCMOTEnabled},
			FormatConversionTask{Enabled: deps.FormatEnabled},
			RuleEvaluationTask{Engine: ruleEngine},
			EventDispatchTask{Engine: dispatchEngine, Metrics: metrics},
		},
	}, nil
}

// buildIdlePipeline is the default non_working pipeline: it still drains any
// events the outer loop enqueued (e.g. a phase_change DispatchEvent) but
// skips tracking and rule evaluation entirely.
func buildIdlePipeline(deps pipeline.Dependencies) (*pipeline.PipelineTask, error) {
	var dispatchEngine DispatchEngine
	if e, ok := deps.DispatchEngine.(DispatchEngine); ok {
		dispatchEngine = e
	}

	var metrics *metric.Metrics
	if m, ok := deps.Metrics.(*metric.Metrics); ok {
		metrics = m
	}

	return &pipeline.PipelineTask{
		Name: "idle",
		Tasks: []pipeline.Task{
			EventDispatchTask{Engine: dispatchEngine, Metrics: metrics},
		},
	}, nil
}

