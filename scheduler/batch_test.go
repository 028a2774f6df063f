package scheduler_test

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"flowroute/diagram"
	"flowroute/scheduler"
	"flowroute/scheduler/mocks"
)

type fixture struct {
	clock    clockwork.FakeClock
	resolver *mocks.MockResolver
	cache    *mocks.MockInvalidator
	batcher  *scheduler.Batcher
	flushed  chan []diagram.ConnectionID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		clock:    clockwork.NewFakeClock(),
		resolver: mocks.NewMockResolver(ctrl),
		cache:    mocks.NewMockInvalidator(ctrl),
		flushed:  make(chan []diagram.ConnectionID, 8),
	}
	f.batcher = scheduler.NewBatcher(f.resolver, f.cache, scheduler.Options{
		Clock:   f.clock,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		OnFlush: func(ids []diagram.ConnectionID) { f.flushed <- ids },
	})
	return f
}

func (f *fixture) waitFlush(t *testing.T) []diagram.ConnectionID {
	t.Helper()
	select {
	case ids := <-f.flushed:
		return ids
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for batch flush")
		return nil
	}
}

func TestBatcherCoalescesBurst(t *testing.T) {
	f := newFixture(t)
	f.resolver.EXPECT().ConnectionsOf(diagram.NodeID("A")).
		Return([]diagram.ConnectionID{"c1", "c2"}).Times(1)
	f.cache.EXPECT().MarkDirty(diagram.ConnectionID("c1")).Times(1)
	f.cache.EXPECT().MarkDirty(diagram.ConnectionID("c2")).Times(1)

	for range 5 {
		f.batcher.ScheduleNodeUpdate("A")
	}
	assert.Equal(t, 1, f.batcher.Pending())

	f.clock.Advance(scheduler.DefaultDebounce - time.Millisecond)
	assert.Equal(t, 1, f.batcher.Pending(), "window still open")

	f.clock.Advance(time.Millisecond)
	assert.Equal(t, []diagram.ConnectionID{"c1", "c2"}, f.waitFlush(t))

	stats := f.batcher.Stats()
	assert.Equal(t, int64(5), stats.Scheduled)
	assert.Equal(t, int64(1), stats.Flushes)
	assert.Equal(t, int64(2), stats.Invalidated)
	assert.Equal(t, 0, stats.Pending)
}

func TestBatcherMergesNodesAndConnections(t *testing.T) {
	f := newFixture(t)
	f.resolver.EXPECT().ConnectionsOf(diagram.NodeID("A")).Return([]diagram.ConnectionID{"c1", "c2"})
	f.resolver.EXPECT().ConnectionsOf(diagram.NodeID("B")).Return([]diagram.ConnectionID{"c2", "c3"})
	for _, id := range []diagram.ConnectionID{"c1", "c2", "c3", "c9"} {
		f.cache.EXPECT().MarkDirty(id).Times(1)
	}

	f.batcher.ScheduleNodeUpdates("B", "A")
	f.batcher.ScheduleConnectionUpdate("c2")
	f.batcher.ScheduleConnectionUpdate("c9")

	assert.Equal(t, 4, f.batcher.ForceFlush())
}

func TestBatcherForceFlushStopsTimer(t *testing.T) {
	f := newFixture(t)
	f.resolver.EXPECT().ConnectionsOf(diagram.NodeID("A")).Return([]diagram.ConnectionID{"c1"}).Times(1)
	f.cache.EXPECT().MarkDirty(diagram.ConnectionID("c1")).Times(1)

	f.batcher.ScheduleNodeUpdate("A")
	assert.Equal(t, 1, f.batcher.ForceFlush())
	f.waitFlush(t)

	// no second pass once the window elapses
	f.clock.Advance(time.Second)
	assert.Equal(t, 0, f.batcher.ForceFlush())
	assert.Equal(t, int64(1), f.batcher.Stats().Flushes)
}

func TestBatcherRegions(t *testing.T) {
	f := newFixture(t)
	oldBox := diagram.Rect{X: 0, Y: 0, Width: 100, Height: 60}
	newBox := diagram.Rect{X: 40, Y: 0, Width: 100, Height: 60}
	f.cache.EXPECT().MarkRegionDirty(oldBox, newBox).Return(3).Times(1)

	f.batcher.ScheduleRegionUpdate(oldBox, diagram.Rect{}, newBox)
	assert.Equal(t, 2, f.batcher.Pending())
	assert.Equal(t, 0, f.batcher.ForceFlush())
	assert.Equal(t, int64(1), f.batcher.Stats().Flushes)
}

func TestBatcherClearPending(t *testing.T) {
	f := newFixture(t)

	f.batcher.ScheduleNodeUpdate("A")
	f.batcher.ScheduleConnectionUpdate("c1")
	f.batcher.ClearPending()
	f.clock.Advance(time.Second)

	assert.Equal(t, 0, f.batcher.Pending())
	assert.Equal(t, 0, f.batcher.ForceFlush())
	assert.Equal(t, int64(0), f.batcher.Stats().Flushes)
}

func TestBatcherRearmsAfterPass(t *testing.T) {
	f := newFixture(t)
	f.cache.EXPECT().MarkDirty(diagram.ConnectionID("c1")).Times(1)
	f.cache.EXPECT().MarkDirty(diagram.ConnectionID("c2")).Times(1)

	f.batcher.ScheduleConnectionUpdate("c1")
	f.clock.Advance(scheduler.DefaultDebounce)
	assert.Equal(t, []diagram.ConnectionID{"c1"}, f.waitFlush(t))

	f.batcher.ScheduleConnectionUpdate("c2")
	f.clock.Advance(scheduler.DefaultDebounce)
	assert.Equal(t, []diagram.ConnectionID{"c2"}, f.waitFlush(t))

	assert.Equal(t, int64(2), f.batcher.Stats().Flushes)
}

func TestBatcherClose(t *testing.T) {
	f := newFixture(t)
	f.cache.EXPECT().MarkDirty(diagram.ConnectionID("c1")).Times(1)

	f.batcher.ScheduleConnectionUpdate("c1")
	require.NoError(t, f.batcher.Close())
	f.waitFlush(t)

	f.batcher.ScheduleConnectionUpdate("c2")
	f.batcher.ScheduleNodeUpdate("A")
	assert.Equal(t, 0, f.batcher.Pending())
	require.NoError(t, f.batcher.Close())
}

func TestBatcherConcurrentSchedule(t *testing.T) {
	f := newFixture(t)
	f.resolver.EXPECT().ConnectionsOf(gomock.Any()).Return([]diagram.ConnectionID{"shared"}).AnyTimes()
	f.cache.EXPECT().MarkDirty(diagram.ConnectionID("shared")).MinTimes(1)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 50 {
				f.batcher.ScheduleNodeUpdate(diagram.NodeID(string(rune('A' + (i+j)%4))))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, f.batcher.Pending())
	assert.Equal(t, 1, f.batcher.ForceFlush())
	assert.Equal(t, int64(400), f.batcher.Stats().Scheduled)
}
