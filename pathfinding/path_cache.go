package pathfinding

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"

	"flowroute/diagram"
)

// Topology is the read side of the graph index the cache routes against.
// Implementations must be safe for concurrent use.
type Topology interface {
	Connection(id diagram.ConnectionID) (diagram.Connection, bool)
	Node(id diagram.NodeID) (diagram.Node, bool)
	// Bounds returns the routing box of every node.
	Bounds() []diagram.Rect
}

// CacheConfig configures a PathCache.
type CacheConfig struct {
	// MaxEntries triggers an automatic cleanup down to TargetSize when exceeded.
	// Zero disables automatic cleanup.
	MaxEntries int
	// TargetSize is the size automatic cleanup shrinks the cache to.
	TargetSize int
	// WarmUpWorkers bounds the parallelism of WarmUp. Zero means 4.
	WarmUpWorkers int
	Clock         clockwork.Clock
	Logger        *slog.Logger
}

// Statistics is a snapshot of the cache counters.
type Statistics struct {
	Size             int
	Hits             int64
	Misses           int64
	HitRate          float64 // percent
	Evictions        int64
	MissingEndpoints int64
	TotalRequests    int64
}

type cacheEntry struct {
	geometry   *Geometry
	source     diagram.NodeID
	target     diagram.NodeID
	dirty      bool
	computedAt time.Time
	usage      uint64
}

// PathCache memoizes routed geometry per connection.
// Entries are recomputed lazily on the first Get after they are marked dirty.
type PathCache struct {
	mu      sync.Mutex
	entries map[diagram.ConnectionID]*cacheEntry
	byNode  map[diagram.NodeID]map[diagram.ConnectionID]struct{}
	// epoch changes on every invalidation so WarmUp can detect races.
	epoch uint64

	topology Topology
	router   *Router
	cfg      CacheConfig
	clock    clockwork.Clock
	logger   *slog.Logger

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	missing   atomic.Int64
}

// NewPathCache creates an empty cache over topology.
func NewPathCache(topology Topology, router *Router, cfg CacheConfig) *PathCache {
	if router == nil {
		router = NewRouter(DefaultOptions())
	}
	if cfg.WarmUpWorkers <= 0 {
		cfg.WarmUpWorkers = 4
	}
	if cfg.TargetSize <= 0 || (cfg.MaxEntries > 0 && cfg.TargetSize > cfg.MaxEntries) {
		cfg.TargetSize = cfg.MaxEntries / 2
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PathCache{
		entries:  make(map[diagram.ConnectionID]*cacheEntry),
		byNode:   make(map[diagram.NodeID]map[diagram.ConnectionID]struct{}),
		topology: topology,
		router:   router,
		cfg:      cfg,
		clock:    clock,
		logger:   logger,
	}
}

// Get returns the geometry for id, computing it on a miss or a dirty hit.
// A clean hit returns the same pointer as the previous call.
// Unknown connections and missing endpoints yield degenerate geometry that is
// not stored.
func (pc *PathCache) Get(id diagram.ConnectionID) *Geometry {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if e, ok := pc.entries[id]; ok {
		e.usage++
		if !e.dirty {
			pc.hits.Add(1)
			return e.geometry
		}
	}
	pc.misses.Add(1)

	conn, ok := pc.topology.Connection(id)
	if !ok {
		pc.missingEndpoint(id)
		return emptyGeometry()
	}
	g, ok := pc.compute(conn)
	if !ok {
		pc.missingEndpoint(id)
		return g
	}

	pc.store(conn, g, false)
	pc.autoCleanup(id)
	return g
}

// compute routes conn against the current topology. It takes no cache state
// and may run without the cache lock.
func (pc *PathCache) compute(conn diagram.Connection) (*Geometry, bool) {
	src, okS := pc.topology.Node(conn.Source)
	dst, okT := pc.topology.Node(conn.Target)
	if !okS || !okT {
		return emptyGeometry(), false
	}

	srcAnchor, okS := ResolvePort(src, conn.SourcePort)
	dstAnchor, okT := ResolvePort(dst, conn.TargetPort)
	if !okS || !okT {
		pc.logger.Debug("unknown port designation, using node center",
			"connection", conn.ID,
			"source_port", conn.SourcePort,
			"target_port", conn.TargetPort)
	}

	return pc.router.Route(Request{
		Source:     srcAnchor,
		Target:     dstAnchor,
		SourceRect: diagram.ShapeBounds(src),
		TargetRect: diagram.ShapeBounds(dst),
		Obstacles:  pc.topology.Bounds(),
		SelfLoop:   conn.IsSelfLoop(),
	}), true
}

func (pc *PathCache) missingEndpoint(id diagram.ConnectionID) {
	pc.missing.Add(1)
	// whatever was stored no longer describes a routable connection
	pc.drop(id)
	pc.logger.Debug("connection endpoint missing", "connection", id)
}

// store must be called with pc.mu held.
func (pc *PathCache) store(conn diagram.Connection, g *Geometry, dirty bool) {
	e, ok := pc.entries[conn.ID]
	if ok {
		if e.source != conn.Source || e.target != conn.Target {
			pc.unindex(conn.ID, e)
			ok = false
		}
	} else {
		e = &cacheEntry{usage: 1}
		pc.entries[conn.ID] = e
	}
	e.geometry = g
	e.source, e.target = conn.Source, conn.Target
	e.dirty = dirty
	e.computedAt = pc.clock.Now()
	if !ok {
		pc.index(conn.ID, e)
	}
}

func (pc *PathCache) index(id diagram.ConnectionID, e *cacheEntry) {
	for _, n := range []diagram.NodeID{e.source, e.target} {
		set, ok := pc.byNode[n]
		if !ok {
			set = make(map[diagram.ConnectionID]struct{})
			pc.byNode[n] = set
		}
		set[id] = struct{}{}
	}
}

func (pc *PathCache) unindex(id diagram.ConnectionID, e *cacheEntry) {
	for _, n := range []diagram.NodeID{e.source, e.target} {
		if set, ok := pc.byNode[n]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(pc.byNode, n)
			}
		}
	}
}

// drop must be called with pc.mu held.
func (pc *PathCache) drop(id diagram.ConnectionID) bool {
	e, ok := pc.entries[id]
	if !ok {
		return false
	}
	pc.unindex(id, e)
	delete(pc.entries, id)
	return true
}

// MarkDirty flags one entry for recomputation. Unknown ids are ignored.
func (pc *PathCache) MarkDirty(id diagram.ConnectionID) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.epoch++
	if e, ok := pc.entries[id]; ok {
		e.dirty = true
	}
}

// MarkAllDirty flags every entry.
func (pc *PathCache) MarkAllDirty() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.epoch++
	for _, e := range pc.entries {
		e.dirty = true
	}
}

// MarkNodeDirty flags every entry whose source or target is node and returns
// how many were flagged.
func (pc *PathCache) MarkNodeDirty(node diagram.NodeID) int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.epoch++
	n := 0
	for id := range pc.byNode[node] {
		if e, ok := pc.entries[id]; ok {
			e.dirty = true
			n++
		}
	}
	return n
}

// MarkRegionDirty flags entries whose footprint overlaps any of rects: the
// route itself or a detour the router weighed against it. It is used when a
// node moves, since the choice of detour may change.
func (pc *PathCache) MarkRegionDirty(rects ...diagram.Rect) int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.epoch++
	n := 0
	for _, e := range pc.entries {
		if e.dirty || e.geometry == nil {
			continue
		}
		bounds := e.geometry.Footprint()
		for _, rect := range rects {
			if overlaps(bounds, rect) {
				e.dirty = true
				n++
				break
			}
		}
	}
	return n
}

// overlaps is Rect.Intersects with edges included, since a straight route
// has a zero-height bounding box.
func overlaps(a, b diagram.Rect) bool {
	return a.Left() <= b.Right() && b.Left() <= a.Right() &&
		a.Top() <= b.Bottom() && b.Top() <= a.Bottom()
}

// Remove drops the entry for id.
func (pc *PathCache) Remove(id diagram.ConnectionID) bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.epoch++
	return pc.drop(id)
}

// Clear removes all entries and resets the counters.
func (pc *PathCache) Clear() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.epoch++
	pc.entries = make(map[diagram.ConnectionID]*cacheEntry)
	pc.byNode = make(map[diagram.NodeID]map[diagram.ConnectionID]struct{})
	pc.hits.Store(0)
	pc.misses.Store(0)
	pc.evictions.Store(0)
	pc.missing.Store(0)
}

// WarmUp computes the given connections in parallel and stores the results.
// Entries that are already clean are skipped. If an invalidation happens while
// the workers run, the results are stored dirty so the next Get recomputes.
func (pc *PathCache) WarmUp(ctx context.Context, ids []diagram.ConnectionID) error {
	pc.mu.Lock()
	epoch := pc.epoch
	todo := make([]diagram.ConnectionID, 0, len(ids))
	for _, id := range ids {
		if e, ok := pc.entries[id]; ok && !e.dirty {
			continue
		}
		todo = append(todo, id)
	}
	pc.mu.Unlock()

	type result struct {
		conn     diagram.Connection
		geometry *Geometry
		ok       bool
	}
	results := make([]result, len(todo))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(pc.cfg.WarmUpWorkers)
	for i, id := range todo {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			conn, ok := pc.topology.Connection(id)
			if !ok {
				return nil
			}
			geom, ok := pc.compute(conn)
			results[i] = result{conn: conn, geometry: geom, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return zerr.Wrap(err, "failed to warm up path cache")
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()
	stale := pc.epoch != epoch
	stored := 0
	for i, res := range results {
		if !res.ok {
			pc.missingEndpoint(todo[i])
			continue
		}
		if e, ok := pc.entries[res.conn.ID]; ok && !e.dirty {
			continue
		}
		pc.store(res.conn, res.geometry, stale)
		stored++
	}
	pc.autoCleanup("")

	pc.logger.Debug("path cache warmed up", "requested", len(ids), "stored", stored, "stale", stale)
	return nil
}

// Cleanup evicts entries until at most targetSize remain. The least used
// entries go first, ties broken by oldest computation and then by id.
// It returns the number of evicted entries.
func (pc *PathCache) Cleanup(targetSize int) int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.cleanup(targetSize, "")
}

// autoCleanup must be called with pc.mu held.
func (pc *PathCache) autoCleanup(keep diagram.ConnectionID) {
	if pc.cfg.MaxEntries <= 0 || len(pc.entries) <= pc.cfg.MaxEntries {
		return
	}
	evicted := pc.cleanup(pc.cfg.TargetSize, keep)
	pc.logger.Debug("path cache cleaned up", "evicted", evicted, "size", len(pc.entries))
}

func (pc *PathCache) cleanup(targetSize int, keep diagram.ConnectionID) int {
	if targetSize < 0 {
		targetSize = 0
	}
	excess := len(pc.entries) - targetSize
	if excess <= 0 {
		return 0
	}

	ids := make([]diagram.ConnectionID, 0, len(pc.entries))
	for id := range pc.entries {
		if id != keep {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b diagram.ConnectionID) int {
		ea, eb := pc.entries[a], pc.entries[b]
		if c := cmp.Compare(ea.usage, eb.usage); c != 0 {
			return c
		}
		if c := ea.computedAt.Compare(eb.computedAt); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	evicted := 0
	for _, id := range ids[:min(excess, len(ids))] {
		pc.drop(id)
		evicted++
	}
	if evicted > 0 {
		pc.epoch++
		pc.evictions.Add(int64(evicted))
	}
	return evicted
}

// Len returns the number of stored entries.
func (pc *PathCache) Len() int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return len(pc.entries)
}

// IsDirty reports whether id is stored and flagged for recomputation.
func (pc *PathCache) IsDirty(id diagram.ConnectionID) bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	e, ok := pc.entries[id]
	return ok && e.dirty
}

// Usage returns the usage counter of id, or 0 if it is not stored.
func (pc *PathCache) Usage(id diagram.ConnectionID) uint64 {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if e, ok := pc.entries[id]; ok {
		return e.usage
	}
	return 0
}

// Stats returns cache statistics.
func (pc *PathCache) Stats() Statistics {
	pc.mu.Lock()
	size := len(pc.entries)
	pc.mu.Unlock()

	s := Statistics{
		Size:             size,
		Hits:             pc.hits.Load(),
		Misses:           pc.misses.Load(),
		Evictions:        pc.evictions.Load(),
		MissingEndpoints: pc.missing.Load(),
	}
	s.TotalRequests = s.Hits + s.Misses
	if s.TotalRequests > 0 {
		s.HitRate = float64(s.Hits) / float64(s.TotalRequests) * 100
	}
	return s
}

// String returns a string representation of cache statistics.
func (pc *PathCache) String() string {
	s := pc.Stats()
	return fmt.Sprintf("PathCache[size=%d/%d, hits=%d, misses=%d, hitRate=%.1f%%, evictions=%d, missing=%d]",
		s.Size, pc.cfg.MaxEntries, s.Hits, s.Misses, s.HitRate, s.Evictions, s.MissingEndpoints)
}
