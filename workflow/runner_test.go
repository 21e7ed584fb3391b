package workflow

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/allenshie/integration-core/edgecomm"
	"github.com/allenshie/integration-core/edgeevent"
	"github.com/allenshie/integration-core/phase"
	"github.com/allenshie/integration-core/pipeline"
)

type fakeAdapter struct {
	mu        sync.Mutex
	published []string
	stopped   bool
}

func (a *fakeAdapter) StartEventIngestion(edgecomm.OnEvent) error { return nil }
func (a *fakeAdapter) PublishPhase(phaseName string, _ float64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.published = append(a.published, phaseName)
	return true
}
func (a *fakeAdapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	return nil
}

type fixedEngine struct{ phase string }

func (e fixedEngine) CurrentPhase(time.Time, phase.StaleStore) string { return e.phase }

type recordingTask struct {
	runs *int
}

func (t recordingTask) Run(ctx *pipeline.Context) (pipeline.Result, error) {
	*t.runs++
	return pipeline.Result{OK: true, Payload: map[string]any{"sleep": 0.01}}, nil
}

func TestRunner_Tick_PublishesOnFirstTickAndRunsPipeline(t *testing.T) {
	store := edgeevent.NewStore(time.Hour, time.Second, slog.Default())
	adapter := &fakeAdapter{}
	tctx := pipeline.NewContext(store, adapter, nil, slog.Default())

	registry := pipeline.NewRegistry()
	runs := 0
	registry.Register("working", &pipeline.PipelineTask{Name: "working", Tasks: []pipeline.Task{recordingTask{runs: &runs}}}, nil)

	runner := NewRunner(tctx, fixedEngine{phase: "working"}, pipeline.WorkingHoursSelector{}, registry, nil, time.Minute, 5*time.Second, time.Second, "test", slog.Default())

	sleep := runner.tick(time.Now())

	require.Equal(t, 1, runs)
	require.Equal(t, []string{"working"}, adapter.published)
	require.Equal(t, 10*time.Millisecond, sleep)
}

type flippingEngine struct{ calls int }

func (e *flippingEngine) CurrentPhase(time.Time, phase.StaleStore) string {
	e.calls++
	if e.calls == 1 {
		return "working"
	}
	return "non_working"
}

func TestRunner_Tick_EnqueuesPhaseChangeEvent(t *testing.T) {
	store := edgeevent.NewStore(time.Hour, time.Second, slog.Default())
	adapter := &fakeAdapter{}
	tctx := pipeline.NewContext(store, adapter, nil, slog.Default())

	registry := pipeline.NewRegistry()
	registry.Register("working", &pipeline.PipelineTask{Name: "working"}, nil)
	registry.Register("non_working", &pipeline.PipelineTask{Name: "non_working"}, nil)

	engine := &flippingEngine{}
	runner := NewRunner(tctx, engine, pipeline.WorkingHoursSelector{}, registry, nil, time.Minute, 5*time.Second, time.Second, "test", slog.Default())

	runner.tick(time.Now())
	require.Equal(t, 0, tctx.Queue.Len())

	runner.tick(time.Now())
	require.Equal(t, 1, tctx.Queue.Len())

	drained := tctx.Queue.DrainAll()
	require.Equal(t, []string{"monitor"}, drained[0].Handlers)
}

func TestRunner_Tick_UnknownPipelineSkipsWithoutPanicking(t *testing.T) {
	store := edgeevent.NewStore(time.Hour, time.Second, slog.Default())
	adapter := &fakeAdapter{}
	tctx := pipeline.NewContext(store, adapter, nil, slog.Default())

	registry := pipeline.NewRegistry()

	runner := NewRunner(tctx, fixedEngine{phase: "ghost"}, pipeline.WorkingHoursSelector{}, registry, nil, time.Minute, 5*time.Second, time.Second, "test", slog.Default())

	require.NotPanics(t, func() { runner.tick(time.Now()) })
}

func TestRunner_Run_StopsOnCancelAndStopsAdapter(t *testing.T) {
	store := edgeevent.NewStore(time.Hour, time.Second, slog.Default())
	adapter := &fakeAdapter{}
	tctx := pipeline.NewContext(store, adapter, nil, slog.Default())

	registry := pipeline.NewRegistry()
	registry.Register("working", &pipeline.PipelineTask{Name: "working"}, nil)

	runner := NewRunner(tctx, fixedEngine{phase: "working"}, pipeline.WorkingHoursSelector{}, registry, nil, time.Minute, 10*time.Second, time.Second, "test", slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runner.Run(ctx)
	require.NoError(t, err)
	require.True(t, adapter.stopped)
}
