package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/allenshie/integration-core/edgeevent"
)

func TestIngestionTask_SnapshotsStoreIntoScratch(t *testing.T) {
	ctx := newTestContext(t)
	ctx.Store = edgeevent.NewStore(time.Hour, time.Minute, ctx.Logger)

	now := time.Now()
	ok := ctx.Store.AddEvent(edgeevent.Event{
		CameraID:   "cam-1",
		Timestamp:  float64(now.Unix()),
		ReceivedAt: now,
	})
	require.True(t, ok)

	result, err := IngestionTask{}.Run(ctx)
	require.NoError(t, err)
	require.True(t, result.OK)

	require.Len(t, ctx.Scratch.Events, 1)
	require.Equal(t, 1, ctx.Scratch.RawCount)
	require.Equal(t, "cam-1", ctx.Scratch.Events[0].CameraID)
}

func TestIngestionTask_EmptyStoreYieldsEmptyScratch(t *testing.T) {
	ctx := newTestContext(t)

	result, err := IngestionTask{}.Run(ctx)
	require.NoError(t, err)
	require.True(t, result.OK)
	require.Empty(t, ctx.Scratch.Events)
	require.Equal(t, 0, ctx.Scratch.RawCount)
}
