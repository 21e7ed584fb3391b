package tasks

import "github.com/allenshie/integration-core/pipeline"

// RuleEngine evaluates the tick's rules_payload and enqueues any resulting
// DispatchEvents. Rule engine internals are an external collaborator's
// responsibility; only this contract is specified.
type RuleEngine interface {
	Evaluate(payload any, queue *pipeline.DispatchQueue) error
}

// NoopRuleEngine enqueues nothing; the default when no rule engine is
// configured, since rule engines are explicitly out of scope.
type NoopRuleEngine struct{}

func (NoopRuleEngine) Evaluate(any, *pipeline.DispatchQueue) error { return nil }

// RuleEvaluationTask runs the configured rule engine over scratch.RulesPayload.
type RuleEvaluationTask struct {
	Engine RuleEngine
}

func (t RuleEvaluationTask) Run(ctx *pipeline.Context) (pipeline.Result, error) {
	engine := t.Engine
	if engine == nil {
		engine = NoopRuleEngine{}
	}

	if err := engine.Evaluate(ctx.Scratch.RulesPayload, ctx.Queue); err != nil {
		return pipeline.Result{OK: false}, err
	}

	return pipeline.Result{OK: true}, nil
}
