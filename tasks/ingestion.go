// Package tasks implements the built-in working-pipeline tasks: Ingestion,
// MCMOT, FormatConversion, RuleEvaluation, and EventDispatch.
package tasks

import (
	"github.com/allenshie/integration-core/pipeline"
)

// IngestionTask snapshots the edge event store's current latest-per-camera
// events into scratch. The store itself owns per-camera dedup and max-age
// rejection; this task only observes a consistent point-in-time copy.
type IngestionTask struct{}

func (IngestionTask) Run(ctx *pipeline.Context) (pipeline.Result, error) {
	events := ctx.Store.Snapshot()
	ctx.Scratch.Events = events
	ctx.Scratch.RawCount = len(events)

	return pipeline.Result{OK: true, Payload: map[string]any{
		"raw_count": len(events),
	}}, nil
}
