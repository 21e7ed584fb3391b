package tasks

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/allenshie/integration-core/metric"
	"github.com/allenshie/integration-core/pipeline"
)

// handlerTimeout bounds how long a single handler delivery may take, per
// the concurrency model's default latency bound for rule/dispatch engines.
const handlerTimeout = 5 * time.Second

// DispatchEngine routes one DispatchEvent to the handlers it names, in
// isolation: one failing handler must not prevent delivery to the others.
type DispatchEngine interface {
	Dispatch(ctx context.Context, event pipeline.DispatchEvent)
}

// LoggingDispatchEngine logs each handler delivery instead of forwarding it
// anywhere; used when the NATS connection attempt at startup fails, and by
// EventDispatchTask when it has no Engine.
type LoggingDispatchEngine struct {
	Logger *slog.Logger
}

func (e LoggingDispatchEngine) Dispatch(_ context.Context, event pipeline.DispatchEvent) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, handler := range event.Handlers {
		logger.Info("dispatch event", "handler", handler, "origin", event.Origin, "event_id", event.ID)
	}
}

// NATSDispatchEngine publishes each DispatchEvent to "<prefix><handler>" for
// every handler it names, so external rule-engine/DB-writer collaborators
// subscribe instead of being hard-linked into the process.
type NATSDispatchEngine struct {
	Conn          *nats.Conn
	SubjectPrefix string
	Metrics       *metric.Metrics
	Logger        *slog.Logger
}

func (e NATSDispatchEngine) Dispatch(ctx context.Context, event pipeline.DispatchEvent) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	payload, err := marshalDispatchEvent(event)
	if err != nil {
		logger.Error("dispatch event marshal failed, all handlers dropped", "event_id", event.ID, "error", err)
		return
	}

	for _, handler := range event.Handlers {
		// Per-handler isolation: a failure on one handler must not stop the
		// others. One retry, then drop with an ERROR log.
		if err := e.publishWithRetry(ctx, handler, payload); err != nil {
			logger.Error("dispatch handler failed, event dropped", "handler", handler, "event_id", event.ID, "error", err)
			if e.Metrics != nil {
				e.Metrics.DispatchFailed.WithLabelValues(handler).Inc()
			}
			continue
		}
		if e.Metrics != nil {
			e.Metrics.DispatchTotal.WithLabelValues(handler).Inc()
		}
	}
}

func (e NATSDispatchEngine) publishWithRetry(ctx context.Context, handler string, payload []byte) error {
	subject := e.SubjectPrefix + handler

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := e.Conn.Publish(subject, payload); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return lastErr
}

func marshalDispatchEvent(event pipeline.DispatchEvent) ([]byte, error) {
	return json.Marshal(map[string]any{
		"id":         event.ID.String(),
		"handlers":   event.Handlers,
		"data":       event.Data,
		"origin":     event.Origin,
		"created_at": event.CreatedAt,
	})
}

// EventDispatchTask is last in every pipeline. It drains the dispatch queue
// atomically (swap to a local buffer, clear the shared queue) and forwards
// each event to the configured dispatch engine.
type EventDispatchTask struct {
	Engine  DispatchEngine
	Metrics *metric.Metrics
}

func (t EventDispatchTask) Run(ctx *pipeline.Context) (pipeline.Result, error) {
	if t.Metrics != nil {
		t.Metrics.QueueDepth.Set(float64(ctx.Queue.Len()))
	}

	events := ctx.Queue.DrainAll()

	engine := t.Engine
	if engine == nil {
		engine = LoggingDispatchEngine{Logger: ctx.Logger}
	}

	dispatchCtx, cancel := context.WithTimeout(context.Background(), handlerTimeout*time.Duration(maxHandlersPerEvent(events)+1))
	defer cancel()

	for _, event := range events {
		engine.Dispatch(dispatchCtx, event)
	}

	return pipeline.Result{OK: true, Payload: map[string]any{"dispatched": len(events)}}, nil
}

func maxHandlersPerEvent(events []pipeline.DispatchEvent) int {
	max := 1
	for _, e := range events {
		if len(e.Handlers) > max {
			max = len(e.Handlers)
		}
	}
	return max
}
