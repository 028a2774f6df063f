// Package session wires the index, router, cache and batch scheduler of one
// editor together and validates graph mutations on the way in.
package session

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/zerr"

	"flowroute/config"
	"flowroute/connections"
	"flowroute/diagram"
	"flowroute/pathfinding"
	"flowroute/scheduler"
)

// Options configures a Session.
type Options struct {
	Router       pathfinding.Options
	Cache        pathfinding.CacheConfig
	Debounce     time.Duration
	ForbidCycles bool
	Clock        clockwork.Clock
	Logger       *slog.Logger
	// OnFlush is called after each scheduler pass that dirtied connections.
	OnFlush func(ids []diagram.ConnectionID)
}

// OptionsFromConfig maps a loaded configuration onto session options.
func OptionsFromConfig(cfg config.Config, logger *slog.Logger) Options {
	return Options{
		Router: cfg.RouterOptions(),
		Cache: pathfinding.CacheConfig{
			MaxEntries:    cfg.Cache.MaxEntries,
			TargetSize:    cfg.Cache.EffectiveTargetSize(),
			WarmUpWorkers: cfg.Cache.WarmUpWorkers,
		},
		Debounce:     cfg.Scheduler.Debounce,
		ForbidCycles: cfg.Graph.ForbidCycles,
		Logger:       logger,
	}
}

// Stats combines the counters of every component.
type Stats struct {
	Nodes       int
	Connections int
	Cache       pathfinding.Statistics
	Scheduler   scheduler.Statistics
}

// Session owns the routing state of one editor.
type Session struct {
	index   *connections.Index
	cache   *pathfinding.PathCache
	batcher *scheduler.Batcher
	logger  *slog.Logger

	forbidCycles bool

	// mu serializes mutations so validation and insertion are atomic
	mu     sync.Mutex
	closed atomic.Bool
}

// New creates an empty session.
func New(opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	index := connections.NewIndex()
	router := pathfinding.NewRouter(opts.Router)

	cacheCfg := opts.Cache
	cacheCfg.Clock = opts.Clock
	cacheCfg.Logger = opts.Logger.With("component", "cache")
	cache := pathfinding.NewPathCache(index, router, cacheCfg)

	batcher := scheduler.NewBatcher(index, cache, scheduler.Options{
		Debounce: opts.Debounce,
		Clock:    opts.Clock,
		Logger:   opts.Logger.With("component", "scheduler"),
		OnFlush:  opts.OnFlush,
	})

	return &Session{
		index:        index,
		cache:        cache,
		batcher:      batcher,
		logger:       opts.Logger,
		forbidCycles: opts.ForbidCycles,
	}
}

// Index exposes the graph index for read access.
func (s *Session) Index() *connections.Index { return s.index }

// Cache exposes the path cache.
func (s *Session) Cache() *pathfinding.PathCache { return s.cache }

func (s *Session) lock() error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return diagram.ErrSessionClosed
	}
	return nil
}

// AddNode inserts a node, or updates it if the id is already known.
func (s *Session) AddNode(n diagram.Node) error {
	if !n.Position.IsFinite() || !validSize(n.Size) {
		return zerr.With(zerr.Wrap(diagram.ErrInvalidTransform, "invalid node geometry"), "node", string(n.ID))
	}
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	old, existed := s.index.Node(n.ID)
	if err := s.index.UpsertNode(n); err != nil {
		return err
	}
	if existed {
		s.batcher.ScheduleNodeUpdate(n.ID)
		s.batcher.ScheduleRegionUpdate(diagram.ShapeBounds(old), diagram.ShapeBounds(n))
		return nil
	}
	// routes through the new box need a detour
	s.batcher.ScheduleRegionUpdate(diagram.ShapeBounds(n))
	return nil
}

// MoveNode sets the top-left corner of a node.
func (s *Session) MoveNode(id diagram.NodeID, pos diagram.Point) error {
	if !pos.IsFinite() {
		return zerr.With(zerr.Wrap(diagram.ErrInvalidTransform, "non-finite position"), "node", string(id))
	}
	return s.update(id, func(n *diagram.Node) { n.Position = pos })
}

// ResizeNode sets the size of a node. Sizes must be positive.
func (s *Session) ResizeNode(id diagram.NodeID, size diagram.Size) error {
	if !validSize(size) {
		return zerr.With(zerr.Wrap(diagram.ErrInvalidTransform, "non-positive size"), "node", string(id))
	}
	return s.update(id, func(n *diagram.Node) { n.Size = size })
}

// TranslateNodes moves several nodes by the same offset. Either every node
// moves or none does.
func (s *Session) TranslateNodes(ids []diagram.NodeID, offset diagram.Point) error {
	if !offset.IsFinite() {
		return zerr.Wrap(diagram.ErrInvalidTransform, "non-finite offset")
	}
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	nodes := make([]diagram.Node, 0, len(ids))
	for _, id := range ids {
		n, ok := s.index.Node(id)
		if !ok {
			return zerr.With(zerr.Wrap(diagram.ErrUnknownNode, "cannot translate"), "node", string(id))
		}
		nodes = append(nodes, n)
	}

	regions := make([]diagram.Rect, 0, 2*len(nodes))
	for _, n := range nodes {
		regions = append(regions, diagram.ShapeBounds(n))
		n.Position = n.Position.Add(offset)
		regions = append(regions, diagram.ShapeBounds(n))
		if err := s.index.UpsertNode(n); err != nil {
			return err
		}
	}
	s.batcher.ScheduleNodeUpdates(ids...)
	s.batcher.ScheduleRegionUpdate(regions...)
	return nil
}

func (s *Session) update(id diagram.NodeID, mutate func(*diagram.Node)) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	n, ok := s.index.Node(id)
	if !ok {
		return zerr.With(zerr.Wrap(diagram.ErrUnknownNode, "cannot update"), "node", string(id))
	}
	before := diagram.ShapeBounds(n)
	mutate(&n)
	if err := s.index.UpsertNode(n); err != nil {
		return err
	}
	s.batcher.ScheduleNodeUpdate(id)
	s.batcher.ScheduleRegionUpdate(before, diagram.ShapeBounds(n))
	return nil
}

func validSize(sz diagram.Size) bool {
	return sz.Width > 0 && sz.Height > 0 && !math.IsInf(sz.Width, 0) && !math.IsInf(sz.Height, 0)
}

// RemoveNode deletes a node together with its connections.
func (s *Session) RemoveNode(id diagram.NodeID) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	n, ok := s.index.Node(id)
	if !ok {
		return zerr.With(zerr.Wrap(diagram.ErrUnknownNode, "cannot remove"), "node", string(id))
	}
	removed := s.index.RemoveNode(id)
	for _, cid := range removed {
		s.cache.Remove(cid)
	}
	// detours around the removed box can straighten
	s.batcher.ScheduleRegionUpdate(diagram.ShapeBounds(n))

	s.logger.Debug("node removed", "node", id, "connections", len(removed))
	return nil
}

// Connect validates and adds a connection. Empty ports are chosen from the
// relative position of the nodes. It returns the connection as stored.
func (s *Session) Connect(c diagram.Connection) (diagram.Connection, error) {
	if c.ID == "" {
		return c, zerr.Wrap(diagram.ErrEmptyID, "connection")
	}
	if c.IsSelfLoop() {
		return c, zerr.With(zerr.Wrap(diagram.ErrSelfLoop, "cannot connect"), "node", string(c.Source))
	}
	if err := s.lock(); err != nil {
		return c, err
	}
	defer s.mu.Unlock()

	src, okS := s.index.Node(c.Source)
	dst, okT := s.index.Node(c.Target)
	switch {
	case !okS:
		return c, zerr.With(zerr.Wrap(diagram.ErrUnknownNode, "cannot connect"), "node", string(c.Source))
	case !okT:
		return c, zerr.With(zerr.Wrap(diagram.ErrUnknownNode, "cannot connect"), "node", string(c.Target))
	}

	if _, exists := s.index.Connection(c.ID); exists {
		return c, zerr.With(zerr.Wrap(diagram.ErrDuplicateConnection, "cannot connect"), "connection", string(c.ID))
	}
	if s.index.ExistsConnection(c.Source, c.Target) {
		return c, zerr.With(zerr.Wrap(diagram.ErrDuplicateConnection, "cannot connect"), "connection", string(c.ID))
	}
	if s.index.ExistsReverseConnection(c.Source, c.Target) {
		return c, zerr.With(zerr.Wrap(diagram.ErrReverseConnection, "cannot connect"), "connection", string(c.ID))
	}
	if s.forbidCycles && s.index.HasPath(c.Target, c.Source) {
		return c, zerr.With(zerr.Wrap(diagram.ErrCycle, "cannot connect"), "connection", string(c.ID))
	}

	if c.SourcePort == "" || c.TargetPort == "" {
		sp, tp := pathfinding.BestPorts(src, dst)
		if c.SourcePort == "" {
			c.SourcePort = sp
		}
		if c.TargetPort == "" {
			c.TargetPort = tp
		}
	}
	for _, port := range []string{c.SourcePort, c.TargetPort} {
		if _, ok := diagram.ParsePort(port); !ok {
			s.logger.Warn("unknown port designation, routing from node center",
				"connection", c.ID, "port", port)
		}
	}

	if err := s.index.UpsertConnection(c); err != nil {
		return c, err
	}
	s.batcher.ScheduleConnectionUpdate(c.ID)
	return c, nil
}

// Disconnect removes a connection and its cached geometry.
func (s *Session) Disconnect(id diagram.ConnectionID) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if !s.index.RemoveConnection(id) {
		return zerr.With(zerr.Wrap(diagram.ErrUnknownConnection, "cannot disconnect"), "connection", string(id))
	}
	s.cache.Remove(id)
	return nil
}

// Geometry returns the routed geometry of a connection. Pending scheduler
// work is not applied; call Flush first for a consistent view.
func (s *Session) Geometry(id diagram.ConnectionID) *pathfinding.Geometry {
	return s.cache.Get(id)
}

// Flush applies pending scheduler work now.
func (s *Session) Flush() int {
	return s.batcher.ForceFlush()
}

// WarmUp precomputes the geometry of every connection.
func (s *Session) WarmUp(ctx context.Context) error {
	conns := s.index.Connections()
	ids := make([]diagram.ConnectionID, 0, len(conns))
	for _, c := range conns {
		ids = append(ids, c.ID)
	}
	return s.cache.WarmUp(ctx, ids)
}

// Load adds nodes and then connections, stopping at the first error.
func (s *Session) Load(nodes []diagram.Node, conns []diagram.Connection) error {
	for _, n := range nodes {
		if err := s.AddNode(n); err != nil {
			return err
		}
	}
	for _, c := range conns {
		if _, err := s.Connect(c); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes pending work. Later mutations return ErrSessionClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Swap(true) {
		return nil
	}
	return s.batcher.Close()
}

// Stats returns a snapshot of all counters.
func (s *Session) Stats() Stats {
	nodes, conns := s.index.Len()
	return Stats{
		Nodes:       nodes,
		Connections: conns,
		Cache:       s.cache.Stats(),
		Scheduler:   s.batcher.Stats(),
	}
}
