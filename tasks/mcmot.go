package tasks

import "github.com/allenshie/integration-core/pipeline"

// MCMOTTask hands this tick's latest-per-camera events to the external
// MC-MOT collaborator and records its tracked output. If MC-MOT is
// disabled, it passes scratch through unchanged.
type MCMOTTask struct {
	Enabled bool
}

func (t MCMOTTask) Run(ctx *pipeline.Context) (pipeline.Result, error) {
	if !t.Enabled || ctx.MCMOT == nil {
		return pipeline.Result{OK: true}, nil
	}

	local, global, err := ctx.MCMOT.ProcessEvents(ctx.Scratch.Events)
	if err != nil {
		return pipeline.Result{OK: false}, err
	}

	ctx.Scratch.LocalObjects = local
	ctx.Scratch.GlobalObjects = global

	return pipeline.Result{OK: true, Payload: map[string]any{
		"local_objects":  len(local),
		"global_objects": len(global),
	}}, nil
}
