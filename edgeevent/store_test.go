package edgeevent

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AddEvent_LatestPerCamera(t *testing.T) {
	s := NewStore(time.Minute, 2*time.Second, nil)
	now := time.Now()

	older := Event{CameraID: "cam01", Timestamp: tsAt(now.Add(-5 * time.Second)), ReceivedAt: now}
	newer := Event{CameraID: "cam01", Timestamp: tsAt(now), ReceivedAt: now}

	require.True(t, s.AddEvent(newer))
	require.True(t, s.AddEvent(older))

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, newer.Timestamp, snap[0].Timestamp)
}

func TestStore_AddEvent_RejectsTooOld(t *testing.T) {
	s := NewStore(60*time.Second, 2*time.Second, nil)
	now := time.Now()
	e := Event{CameraID: "cam01", Timestamp: tsAt(now.Add(-120 * time.Second)), ReceivedAt: now}

	ok := s.AddEvent(e)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Size())
}

func TestStore_AddEvent_ClampsSmallFutureSkew(t *testing.T) {
	s := NewStore(time.Minute, 2*time.Second, nil)
	now := time.Now()
	e := Event{CameraID: "cam01", Timestamp: tsAt(now.Add(time.Second)), ReceivedAt: now}

	require.True(t, s.AddEvent(e))
	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.InDelta(t, tsAt(now), snap[0].Timestamp, 0.01)
}

func TestStore_AddEvent_RejectsLargeFutureSkew(t *testing.T) {
	s := NewStore(time.Minute, 2*time.Second, nil)
	now := time.Now()
	e := Event{CameraID: "cam01", Timestamp: tsAt(now.Add(time.Hour)), ReceivedAt: now}

	assert.False(t, s.AddEvent(e))
}

func TestStore_LastEventAge_InfWhenEmpty(t *testing.T) {
	s := NewStore(time.Minute, 2*time.Second, nil)
	assert.True(t, math.IsInf(s.LastEventAge(), 1))
}

func TestStore_ClearAndClearAll(t *testing.T) {
	s := NewStore(time.Minute, 2*time.Second, nil)
	now := time.Now()
	require.True(t, s.AddEvent(Event{CameraID: "cam01", Timestamp: tsAt(now), ReceivedAt: now}))
	require.True(t, s.AddEvent(Event{CameraID: "cam02", Timestamp: tsAt(now), ReceivedAt: now}))

	s.Clear("cam01")
	assert.Equal(t, 1, s.Size())

	s.ClearAll()
	assert.Equal(t, 0, s.Size())
	assert.True(t, math.IsInf(s.LastEventAge(), 1))
}

func tsAt(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
