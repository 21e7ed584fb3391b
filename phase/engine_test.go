package phase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScheduler struct {
	sequence []string
	calls    int
}

func (f *fakeScheduler) Resolve(time.Time) Phase {
	name := f.sequence[f.calls]
	if f.calls < len(f.sequence)-1 {
		f.calls++
	}
	return Phase{Name: name, IsWorkingHours: name == "working"}
}

type fakeStore struct{ age float64 }

func (f fakeStore) LastEventAge() float64 { return f.age }

func TestDebouncedEngine_CommitsAfterStablePeriod(t *testing.T) {
	sched := &fakeScheduler{sequence: []string{"non_working"}}
	e := NewDebouncedEngine(sched, 5*time.Second, 0, StaleModeOff, "", nil)
	now := time.Now()

	// First call with a differing candidate only starts the debounce clock.
	got := e.CurrentPhase(now, nil)
	assert.Equal(t, "", got)

	got = e.CurrentPhase(now.Add(6*time.Second), nil)
	assert.Equal(t, "non_working", got)
}

func TestDebouncedEngine_RejectsUnstableFlapping(t *testing.T) {
	// Scenario 2: scheduler alternates working/non_working/working at t=0,1,2
	// with PHASE_STABLE_SECONDS=5. Committed phase must remain "working".
	sched := &fakeScheduler{sequence: []string{"working", "non_working", "working"}}
	e := NewDebouncedEngine(sched, 5*time.Second, 0, StaleModeOff, "", nil)
	now := time.Now()

	// Establish "working" as committed first.
	e.state.Committed = "working"

	assert.Equal(t, "working", e.CurrentPhase(now, nil))
	assert.Equal(t, "working", e.CurrentPhase(now.Add(time.Second), nil))
	assert.Equal(t, "working", e.CurrentPhase(now.Add(2*time.Second), nil))
}

func TestDebouncedEngine_StaleFreezeKeepsCommitted(t *testing.T) {
	// Scenario 3: stale freeze keeps the committed phase regardless of scheduler.
	sched := &fakeScheduler{sequence: []string{"non_working"}}
	e := NewDebouncedEngine(sched, 5*time.Second, 10*time.Second, StaleModeFreeze, "", nil)
	e.state.Committed = "working"

	got := e.CurrentPhase(time.Now(), fakeStore{age: 15})
	assert.Equal(t, "working", got)
}

func TestDebouncedEngine_StaleUnknownForcesUnknownPhase(t *testing.T) {
	// Scenario 4: stale unknown force-commits to the configured unknown phase.
	sched := &fakeScheduler{sequence: []string{"non_working"}}
	e := NewDebouncedEngine(sched, 5*time.Second, 10*time.Second, StaleModeUnknown, "idle", nil)
	e.state.Committed = "working"

	got := e.CurrentPhase(time.Now(), fakeStore{age: 15})
	assert.Equal(t, "idle", got)
	assert.Equal(t, "idle", e.state.Committed)
}

func TestDebouncedEngine_StaleFreezeWithNoCommittedUsesScheduler(t *testing.T) {
	sched := &fakeScheduler{sequence: []string{"non_working"}}
	e := NewDebouncedEngine(sched, 5*time.Second, 10*time.Second, StaleModeFreeze, "", nil)

	got := e.CurrentPhase(time.Now(), fakeStore{age: 15})
	assert.Equal(t, "non_working", got)
}

func TestBuildEngine_DefaultsToDebounced(t *testing.T) {
	eng, err := BuildEngine("", SinglePhaseScheduler{}, time.Second, 0, StaleModeOff, "", nil)
	require.NoError(t, err)
	_, ok := eng.(*DebouncedEngine)
	assert.True(t, ok)
}
