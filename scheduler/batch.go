// Package scheduler coalesces bursts of geometry changes into a single
// cache invalidation pass.
package scheduler

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"flowroute/diagram"
)

// DefaultDebounce is roughly one frame at 60 Hz.
const DefaultDebounce = 16 * time.Millisecond

// Resolver maps a node to the connections attached to it.
//
//go:generate mockgen -source=batch.go -destination=mocks/mock_batch.go -package=mocks
type Resolver interface {
	ConnectionsOf(n diagram.NodeID) []diagram.ConnectionID
}

// Invalidator receives the dirty marks produced by a pass.
type Invalidator interface {
	MarkDirty(id diagram.ConnectionID)
	MarkRegionDirty(rects ...diagram.Rect) int
}

// Options configures a Batcher.
type Options struct {
	Debounce time.Duration
	Clock    clockwork.Clock
	Logger   *slog.Logger
	// OnFlush is called after each pass that marked connections dirty. Node
	// connections come first in node id order, then explicit connection updates.
	OnFlush func(ids []diagram.ConnectionID)
}

// Statistics is a snapshot of the batcher counters.
type Statistics struct {
	Scheduled   int64
	Flushes     int64
	Invalidated int64
	Pending     int
}

// Batcher collects node, connection and region updates and applies them to
// the cache once the debounce window closes.
// It is safe for concurrent use.
type Batcher struct {
	resolver Resolver
	cache    Invalidator
	debounce time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	onFlush  func([]diagram.ConnectionID)

	mu      sync.Mutex
	nodes   map[diagram.NodeID]struct{}
	conns   map[diagram.ConnectionID]struct{}
	regions []diagram.Rect
	timer   clockwork.Timer
	// gen identifies the armed timer so a late fire cannot flush the next window
	gen    uint64
	closed bool

	scheduled   atomic.Int64
	flushes     atomic.Int64
	invalidated atomic.Int64
}

// NewBatcher creates a batcher that resolves nodes through resolver and marks
// entries dirty on cache.
func NewBatcher(resolver Resolver, cache Invalidator, opts Options) *Batcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Batcher{
		resolver: resolver,
		cache:    cache,
		debounce: opts.Debounce,
		clock:    opts.Clock,
		logger:   opts.Logger,
		onFlush:  opts.OnFlush,
		nodes:    make(map[diagram.NodeID]struct{}),
		conns:    make(map[diagram.ConnectionID]struct{}),
	}
}

// ScheduleNodeUpdate queues every connection of n for invalidation.
func (b *Batcher) ScheduleNodeUpdate(n diagram.NodeID) {
	b.ScheduleNodeUpdates(n)
}

// ScheduleNodeUpdates queues several nodes in one call.
func (b *Batcher) ScheduleNodeUpdates(ids ...diagram.NodeID) {
	b.schedule(func() {
		for _, id := range ids {
			b.nodes[id] = struct{}{}
		}
	}, len(ids))
}

// ScheduleConnectionUpdate queues a single connection for invalidation.
func (b *Batcher) ScheduleConnectionUpdate(id diagram.ConnectionID) {
	b.schedule(func() {
		b.conns[id] = struct{}{}
	}, 1)
}

// ScheduleRegionUpdate queues an area whose crossing routes must be recomputed,
// typically the old and new box of a moved node.
func (b *Batcher) ScheduleRegionUpdate(rects ...diagram.Rect) {
	b.schedule(func() {
		for _, r := range rects {
			if !r.IsEmpty() {
				b.regions = append(b.regions, r)
			}
		}
	}, len(rects))
}

func (b *Batcher) schedule(add func(), n int) {
	if n == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	add()
	b.scheduled.Add(int64(n))

	if b.timer == nil {
		b.gen++
		gen := b.gen
		b.timer = b.clock.AfterFunc(b.debounce, func() { b.fire(gen) })
	}
}

func (b *Batcher) fire(gen uint64) {
	b.mu.Lock()
	if gen != b.gen || b.timer == nil {
		b.mu.Unlock()
		return
	}
	nodes, conns, regions := b.takeLocked()
	b.mu.Unlock()

	b.apply(nodes, conns, regions)
}

// ForceFlush runs the pending pass now and returns the number of connections
// marked dirty.
func (b *Batcher) ForceFlush() int {
	b.mu.Lock()
	nodes, conns, regions := b.takeLocked()
	b.mu.Unlock()

	return b.apply(nodes, conns, regions)
}

// ClearPending discards everything queued and stops the timer.
func (b *Batcher) ClearPending() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.takeLocked()
}

// Close flushes what is pending and ignores later schedule calls.
func (b *Batcher) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	nodes, conns, regions := b.takeLocked()
	b.mu.Unlock()

	b.apply(nodes, conns, regions)
	return nil
}

// takeLocked must be called with mu held. It stops the timer and hands over
// the pending sets.
func (b *Batcher) takeLocked() (map[diagram.NodeID]struct{}, map[diagram.ConnectionID]struct{}, []diagram.Rect) {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	nodes, conns, regions := b.nodes, b.conns, b.regions
	b.nodes = make(map[diagram.NodeID]struct{})
	b.conns = make(map[diagram.ConnectionID]struct{})
	b.regions = nil
	return nodes, conns, regions
}

// apply runs without b.mu so the resolver and cache can take their own locks.
func (b *Batcher) apply(nodes map[diagram.NodeID]struct{}, conns map[diagram.ConnectionID]struct{}, regions []diagram.Rect) int {
	if len(nodes) == 0 && len(conns) == 0 && len(regions) == 0 {
		return 0
	}
	start := b.clock.Now()

	dirty := make(map[diagram.ConnectionID]struct{}, len(conns))
	ordered := make([]diagram.ConnectionID, 0, len(conns))
	add := func(id diagram.ConnectionID) {
		if _, ok := dirty[id]; ok {
			return
		}
		dirty[id] = struct{}{}
		ordered = append(ordered, id)
	}
	for _, n := range slices.Sorted(maps.Keys(nodes)) {
		for _, id := range b.resolver.ConnectionsOf(n) {
			add(id)
		}
	}
	for _, id := range slices.Sorted(maps.Keys(conns)) {
		add(id)
	}

	for _, id := range ordered {
		b.cache.MarkDirty(id)
	}
	swept := 0
	if len(regions) > 0 {
		swept = b.cache.MarkRegionDirty(regions...)
	}

	b.flushes.Add(1)
	b.invalidated.Add(int64(len(ordered)))
	b.logger.Debug("batch flushed",
		"nodes", len(nodes),
		"connections", len(ordered),
		"regions", len(regions),
		"region_hits", swept,
		"took", b.clock.Since(start))

	if b.onFlush != nil && len(ordered) > 0 {
		b.onFlush(ordered)
	}
	return len(ordered)
}

// Pending returns the number of queued nodes, connections and regions.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.nodes) + len(b.conns) + len(b.regions)
}

// Stats returns batcher statistics.
func (b *Batcher) Stats() Statistics {
	return Statistics{
		Scheduled:   b.scheduled.Load(),
		Flushes:     b.flushes.Load(),
		Invalidated: b.invalidated.Load(),
		Pending:     b.Pending(),
	}
}
