// Package workflow implements the outer phase-tick loop: resolve phase,
// heartbeat-publish it, select and run a pipeline, then sleep for the
// interval the tick's own result asks for.
package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/allenshie/integration-core/metric"
	"github.com/allenshie/integration-core/phase"
	"github.com/allenshie/integration-core/pipeline"
)

// Runner is the outer phase-tick loop. HeartbeatEvery bounds how long a
// committed phase can go unpublished even with no transitions, per
// MQTT_HEARTBEAT_SECONDS.
type Runner struct {
	Store           *pipeline.Context // shared context; Store/Adapter/MCMOT live inside
	PhaseEngine     phase.Engine
	Selector        pipeline.Selector
	Registry        *pipeline.Registry
	Metrics         *metric.Metrics
	Logger          *slog.Logger
	HeartbeatEvery  time.Duration
	DefaultInterval time.Duration
	ShutdownTimeout time.Duration
	PublishBackend  string

	previousPhase     string
	lastPublishedAt   time.Time
	shutdownRequested bool
}

// NewRunner wires a Runner from its already-constructed collaborators. ctx
// must have its Store and Adapter fields already populated; a nil MCMOT
// makes MCMOTTask a pass-through. A
// shutdownTimeout of zero means shutdown() waits on the adapter's Stop
// indefinitely. publishBackend labels the publish metrics.
func NewRunner(ctx *pipeline.Context, engine phase.Engine, selector pipeline.Selector, registry *pipeline.Registry, metrics *metric.Metrics, heartbeatEvery, defaultInterval, shutdownTimeout time.Duration, publishBackend string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		Store:           ctx,
		PhaseEngine:     engine,
		Selector:        selector,
		Registry:        registry,
		Metrics:         metrics,
		Logger:          logger,
		HeartbeatEvery:  heartbeatEvery,
		DefaultInterval: defaultInterval,
		ShutdownTimeout: shutdownTimeout,
		PublishBackend:  publishBackend,
	}
}

// Run executes the main loop until ctx is cancelled. It always returns nil;
// cancellation is the only exit path. Shutdown stops ingestion after the
// in-flight tick finishes, then discards whatever is still queued (see
// shutdown).
func (r *Runner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return r.shutdown()
		default:
		}

		sleepFor := r.tick(time.Now())

		select {
		case <-ctx.Done():
			return r.shutdown()
		case <-time.After(sleepFor):
		}
	}
}

// tick runs exactly one PhaseTask iteration and returns how long to sleep
// before the next one.
func (r *Runner) tick(now time.Time) time.Duration {
	tctx := r.Store

	currentPhase := r.PhaseEngine.CurrentPhase(now, tctx.Store)

	changed := currentPhase != r.previousPhase
	dueForHeartbeat := r.HeartbeatEvery > 0 && now.Sub(r.lastPublishedAt) >= r.HeartbeatEvery

	if changed || dueForHeartbeat || r.lastPublishedAt.IsZero() {
		ok := tctx.Adapter.PublishPhase(currentPhase, float64(now.Unix()))
		if !ok {
			r.Logger.Warn("phase publish failed", "phase", currentPhase)
		}
		if r.Metrics != nil {
			r.Metrics.RecordPublish(r.PublishBackend, ok)
		}
		r.lastPublishedAt = now
	}

	if changed {
		if r.previousPhase != "" {
			if r.Metrics != nil {
				r.Metrics.RecordPhase(r.previousPhase, currentPhase)
			}
			tctx.Queue.Enqueue(pipeline.NewDispatchEvent(
				[]string{"monitor"},
				map[string]any{"from": r.previousPhase, "to": currentPhase, "at": now},
				"phase_change",
			))
			r.Logger.Info("phase changed", "from", r.previousPhase, "to", currentPhase)
		}
		r.previousPhase = currentPhase
	}

	if r.Metrics != nil {
		r.Metrics.RecordStore(tctx.Store.Size(), tctx.Store.LastEventAge())
	}

	tctx.ResetScratch()

	selection := r.Selector.Select(currentPhase, tctx)

	if selectorChanged, _ := selection.Metadata["phase_changed"].(bool); selectorChanged && !changed {
		tctx.Queue.Enqueue(pipeline.NewDispatchEvent(
			[]string{"monitor"},
			map[string]any{"from": r.previousPhase, "to": currentPhase, "at": now},
			"phase_change",
		))
	}

	task, defaultSleep, err := r.Registry.Get(selection.PipelineName)
	if err != nil {
		r.Logger.Error("selector returned unknown pipeline, tick skipped", "pipeline", selection.PipelineName, "error", err)
		return r.resolveSleep(nil, selection, nil)
	}

	start := now
	result, err := task.Run(tctx)
	if r.Metrics != nil {
		r.Metrics.RecordTick(currentPhase, time.Since(start))
	}
	if err != nil {
		r.Logger.Error("pipeline task failed, continuing on next tick", "pipeline", selection.PipelineName, "error", err)
	} else if !result.OK {
		r.Logger.Warn("pipeline short-circuited", "pipeline", selection.PipelineName)
	}

	return r.resolveSleep(&result, selection, defaultSleep)
}

// resolveSleep implements result.payload.sleep ?? meta.sleep ?? default_sleep
// ?? LOOP_INTERVAL_SECONDS, in that priority order.
func (r *Runner) resolveSleep(result *pipeline.Result, selection pipeline.Selection, defaultSleep *float64) time.Duration {
	if result != nil {
		if s, ok := result.Sleep(); ok {
			return secondsToDuration(s)
		}
	}
	if s, ok := selection.Sleep(); ok {
		return secondsToDuration(s)
	}
	if defaultSleep != nil && *defaultSleep > 0 {
		return secondsToDuration(*defaultSleep)
	}
	return r.DefaultInterval
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// shutdown stops ingestion, then drains the queue. Events still queued are
// not dispatched: they are discarded, and their count is logged at WARN.
func (r *Runner) shutdown() error {
	if r.shutdownRequested {
		return nil
	}
	r.shutdownRequested = true

	r.Logger.Info("shutting down workflow runner")

	if err := r.stopAdapterWithTimeout(); err != nil {
		r.Logger.Warn("adapter stop returned error", "error", err)
	}

	drained := r.Store.Queue.DrainAll()
	if len(drained) > 0 {
		r.Logger.Warn("dropping undelivered dispatch events at shutdown", "count", len(drained))
	}

	return nil
}

// stopAdapterWithTimeout bounds Adapter.Stop() to ShutdownTimeout, since the
// Adapter interface itself has no context-aware Stop variant. A timeout
// leaves the stop goroutine running in the background and returns so the
// process can still exit promptly.
func (r *Runner) stopAdapterWithTimeout() error {
	if r.ShutdownTimeout <= 0 {
		return r.Store.Adapter.Stop()
	}

	done := make(chan error, 1)
	go func() { done <- r.Store.Adapter.Stop() }()

	select {
	case err := <-done:
		return err
	case <-time.After(r.ShutdownTimeout):
		r.Logger.Warn("adapter stop timed out", "timeout", r.ShutdownTimeout)
		return nil
	}
}
