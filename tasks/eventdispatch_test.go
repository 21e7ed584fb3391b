package tasks

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/allenshie/integration-core/edgeevent"
	"github.com/allenshie/integration-core/pipeline"
)

// recordingDispatchEngine records every handler it was asked to deliver to,
// and fails a configurable subset of them, to exercise per-handler isolation.
type recordingDispatchEngine struct {
	mu        sync.Mutex
	delivered []string
	failing   map[string]bool
	logger    *slog.Logger
}

func (e *recordingDispatchEngine) Dispatch(_ context.Context, event pipeline.DispatchEvent) {
	for _, handler := range event.Handlers {
		if e.failing[handler] {
			e.logger.Error("dispatch handler failed, event dropped", "handler", handler, "event_id", event.ID)
			continue
		}
		e.mu.Lock()
		e.delivered = append(e.delivered, handler)
		e.mu.Unlock()
	}
}

func TestEventDispatchTask_FailingHandlerDoesNotBlockOthers(t *testing.T) {
	engine := &recordingDispatchEngine{
		failing: map[string]bool{"api": true},
		logger:  slog.Default(),
	}

	ctx := newTestContext(t)
	ctx.Queue.Enqueue(pipeline.DispatchEvent{
		ID:       uuid.New(),
		Handlers: []string{"api", "db"},
		Data:     map[string]any{"k": "v"},
		Origin:   "rule",
	})
	require.Equal(t, 1, ctx.Queue.Len())

	task := EventDispatchTask{Engine: engine}
	result, err := task.Run(ctx)
	require.NoError(t, err)
	require.True(t, result.OK)

	require.Equal(t, []string{"db"}, engine.delivered)
	require.Equal(t, 0, ctx.Queue.Len())
}

func TestEventDispatchTask_DefaultsToLoggingEngine(t *testing.T) {
	ctx := newTestContext(t)
	ctx.Queue.Enqueue(pipeline.DispatchEvent{ID: uuid.New(), Handlers: []string{"noop"}, Origin: "rule"})

	task := EventDispatchTask{}
	result, err := task.Run(ctx)
	require.NoError(t, err)
	require.True(t, result.OK)
	require.Equal(t, 0, ctx.Queue.Len())
}

func newTestContext(t *testing.T) *pipeline.Context {
	t.Helper()
	store := edgeevent.NewStore(0, 0, slog.Default())
	return pipeline.NewContext(store, nil, nil, slog.Default())
}
