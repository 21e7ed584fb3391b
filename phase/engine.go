package phase

import (
	"fmt"
	"log/slog"
	"time"
)

// StaleStore is the subset of edgeevent.Store the engine needs for stale
// detection, kept as an interface so this package never imports edgeevent.
type StaleStore interface {
	LastEventAge() float64
}

// StaleMode selects the behavior when the store has gone stale.
type StaleMode int

const (
	StaleModeOff StaleMode = iota
	StaleModeFreeze
	StaleModeUnknown
)

// Engine wraps a SchedulerEngine and may debounce or override its output.
// CurrentPhase is pure w.r.t. external I/O beyond store and scheduler reads,
// and idempotent within the same now/state.
type Engine interface {
	CurrentPhase(now time.Time, store StaleStore) string
}

// PassThroughEngine returns the scheduler's raw candidate unchanged.
type PassThroughEngine struct {
	Scheduler SchedulerEngine
}

func (e *PassThroughEngine) CurrentPhase(now time.Time, _ StaleStore) string {
	return e.Scheduler.Resolve(now).Name
}

// DebouncedEngine requires a candidate phase to persist StableFor before
// committing, and applies stale-store overrides ahead of debounce logic.
type DebouncedEngine struct {
	Scheduler SchedulerEngine
	StableFor time.Duration

	StaleAfter   time.Duration
	StaleMode    StaleMode
	UnknownPhase string

	Logger *slog.Logger

	state State
}

// NewDebouncedEngine builds a debounced phase engine. UnknownPhase defaults
// to "unknown" when empty.
func NewDebouncedEngine(scheduler SchedulerEngine, stableFor, staleAfter time.Duration, mode StaleMode, unknownPhase string, logger *slog.Logger) *DebouncedEngine {
	if unknownPhase == "" {
		unknownPhase = "unknown"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DebouncedEngine{
		Scheduler: scheduler, StableFor: stableFor,
		StaleAfter: staleAfter, StaleMode: mode, UnknownPhase: unknownPhase,
		Logger: logger,
	}
}

// CurrentPhase implements Engine. Stale overrides are checked first, then
// a candidate phase must hold for StableFor before it is committed; the
// transition table is the branches below.
func (e *DebouncedEngine) CurrentPhase(now time.Time, store StaleStore) string {
	if e.StaleAfter > 0 && store != nil {
		age := store.LastEventAge()
		if age > e.StaleAfter.Seconds() {
			e.Logger.Warn("edge event store stale, phase engine overriding", "age_seconds", age, "mode", e.staleModeString())
			switch e.StaleMode {
			case StaleModeFreeze:
				if e.state.Committed == "" {
					// No committed phase yet: fall back to the scheduler's
					// raw output rather than freezing on an empty value.
					return e.Scheduler.Resolve(now).Name
				}
				return e.state.Committed
			case StaleModeUnknown:
				e.state.Committed = e.UnknownPhase
				e.state.Candidate = ""
				e.state.EnteredAt = now
				return e.UnknownPhase
			}
		}
	}

	candidatePhase := e.Scheduler.Resolve(now).Name

	if candidatePhase == e.state.Committed {
		e.state.Candidate = ""
		return e.state.Committed
	}

	if e.state.Candidate != candidatePhase {
		e.state.Candidate = candidatePhase
		e.state.CandidateSince = now
		return e.state.Committed
	}

	if !e.state.CandidateSince.IsZero() && now.Sub(e.state.CandidateSince) >= e.StableFor {
		e.state.Committed = e.state.Candidate
		e.state.EnteredAt = now
		e.state.Candidate = ""
		return e.state.Committed
	}

	return e.state.Committed
}

func (e *DebouncedEngine) staleModeString() string {
	switch e.StaleMode {
	case StaleModeFreeze:
		return "freeze"
	case StaleModeUnknown:
		return "unknown"
	default:
		return "off"
	}
}

// EngineFactory builds a phase Engine from a scheduler and debounce settings.
type EngineFactory func(scheduler SchedulerEngine, stableFor, staleAfter time.Duration, mode StaleMode, unknownPhase string, logger *slog.Logger) (Engine, error)

var engineRegistry = map[string]EngineFactory{
	"time_based": func(scheduler SchedulerEngine, _, _ time.Duration, _ StaleMode, _ string, _ *slog.Logger) (Engine, error) {
		return &PassThroughEngine{Scheduler: scheduler}, nil
	},
	"debounced": func(scheduler SchedulerEngine, stableFor, staleAfter time.Duration, mode StaleMode, unknownPhase string, logger *slog.Logger) (Engine, error) {
		return NewDebouncedEngine(scheduler, stableFor, staleAfter, mode, unknownPhase, logger), nil
	},
}

// RegisterEngine adds or overrides a named phase engine factory.
func RegisterEngine(name string, factory EngineFactory) {
	engineRegistry[name] = factory
}

// BuildEngine resolves name (the PHASE_ENGINE_CLASS value, defaulting to
// "debounced") against the compile-time registry.
func BuildEngine(name string, scheduler SchedulerEngine, stableFor, staleAfter time.Duration, mode StaleMode, unknownPhase string, logger *slog.Logger) (Engine, error) {
	if name == "" {
		name = "debounced"
	}
	factory, ok := engineRegistry[name]
	if !ok {
		return nil, fmt.Errorf("phase: unresolved phase engine class %q", name)
	}
	return factory(scheduler, stableFor, staleAfter, mode, unknownPhase, logger)
}
