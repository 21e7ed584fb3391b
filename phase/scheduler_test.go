package phase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_Contains(t *testing.T) {
	loc := time.UTC
	w := Window{StartHour: 8, EndHour: 18}

	inside := time.Date(2026, 3, 5, 10, 0, 0, 0, loc)
	outside := time.Date(2026, 3, 5, 20, 0, 0, 0, loc)

	assert.True(t, w.Contains(inside))
	assert.False(t, w.Contains(outside))
}

func TestTimeBasedScheduler_InAndOutOfWindow(t *testing.T) {
	s := NewTimeBasedScheduler(time.UTC, []Window{{StartHour: 8, EndHour: 18}})

	working := s.Resolve(time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC))
	nonWorking := s.Resolve(time.Date(2026, 3, 5, 22, 0, 0, 0, time.UTC))

	assert.Equal(t, "working", working.Name)
	assert.Equal(t, "non_working", nonWorking.Name)
}

func TestSinglePhaseScheduler_AlwaysWorking(t *testing.T) {
	s := SinglePhaseScheduler{}
	assert.Equal(t, "working", s.Resolve(time.Now()).Name)
}

func TestIronGateScheduler_FollowsSignal(t *testing.T) {
	open := true
	s := &IronGateScheduler{Signal: func() bool { return open }}

	assert.Equal(t, "working", s.Resolve(time.Now()).Name)
	open = false
	assert.Equal(t, "non_working", s.Resolve(time.Now()).Name)
}

func TestBuildScheduler_UnknownNameFails(t *testing.T) {
	_, err := BuildScheduler("does-not-exist", time.UTC, nil, nil)
	require.Error(t, err)
}
