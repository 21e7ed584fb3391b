// Package pipeline holds the task/engine composition model: the shared
// per-run Context, the Task contract, the phase->pipeline Registry and
// Selector, and the pipeline schedule loader.
package pipeline

import (
	"log/slog"

	"github.com/allenshie/integration-core/edgecomm"
	"github.com/allenshie/integration-core/edgeevent"
	"github.com/allenshie/integration-core/mcmot"
)

// Scratch carries per-tick values written by upstream tasks and read by
// downstream ones. Reset at the start of every tick.
type Scratch struct {
	Events        []edgeevent.Event
	RawCount      int
	Dropped       int
	GlobalObjects []mcmot.GlobalObject
	LocalObjects  []mcmot.LocalObject
	RulesPayload  any
}

// Context is the typed, shared state visible to every task in a pipeline
// for the duration of one tick and across ticks. It is exclusively owned
// by the workflow runner; tasks borrow it for one Run call and never
// retain references.
type Context struct {
	Store   *edgeevent.Store
	Adapter edgecomm.Adapter
	MCMOT   mcmot.Engine
	Logger  *slog.Logger

	Queue   *DispatchQueue
	Scratch Scratch

	// Resources holds named collaborators that do not warrant a first-class
	// field (rule engines, format strategies); named after the source's
	// resource map, but typed at the boundary rather than left as `any`
	// throughout the call chain.
	Resources map[string]any
}

// NewContext builds a Context with an empty dispatch queue and resource map.
func NewContext(store *edgeevent.Store, adapter edgecomm.Adapter, engine mcmot.Engine, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		Store:     store,
		Adapter:   adapter,
		MCMOT:     engine,
		Logger:    logger,
		Queue:     NewDispatchQueue(),
		Resources: make(map[string]any),
	}
}

// ResetScratch clears per-tick scratch state. Called once at the start of
// every tick, before Ingestion runs.
func (c *Context) ResetScratch() {
	c.Scratch = Scratch{}
}
