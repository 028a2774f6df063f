// Package connections keeps the adjacency index between nodes and the
// connections that join them.
package connections

import (
	"cmp"
	"slices"
	"sync"

	"go.trai.ch/zerr"

	"flowroute/diagram"
)

type idSet map[diagram.ConnectionID]struct{}

// Index maps nodes to their connections in both directions.
// It is safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	nodes    map[diagram.NodeID]diagram.Node
	order    []diagram.NodeID
	position map[diagram.NodeID]int
	conns    map[diagram.ConnectionID]diagram.Connection
	outgoing map[diagram.NodeID]idSet
	incoming map[diagram.NodeID]idSet
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		nodes:    make(map[diagram.NodeID]diagram.Node),
		position: make(map[diagram.NodeID]int),
		conns:    make(map[diagram.ConnectionID]diagram.Connection),
		outgoing: make(map[diagram.NodeID]idSet),
		incoming: make(map[diagram.NodeID]idSet),
	}
}

// UpsertNode adds a node or replaces its position, size and shape.
func (ix *Index) UpsertNode(n diagram.Node) error {
	if n.ID == "" {
		return zerr.Wrap(diagram.ErrEmptyID, "node")
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.nodes[n.ID]; !ok {
		ix.position[n.ID] = len(ix.order)
		ix.order = append(ix.order, n.ID)
	}
	ix.nodes[n.ID] = n
	return nil
}

// RemoveNode deletes a node and every connection touching it.
// It returns the ids of the removed connections, sorted.
func (ix *Index) RemoveNode(id diagram.NodeID) []diagram.ConnectionID {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, ok := ix.nodes[id]; !ok {
		return nil
	}

	removed := ix.connectionsOf(id)
	for _, cid := range removed {
		ix.unlink(ix.conns[cid])
		delete(ix.conns, cid)
	}

	// swap-delete keeps Bounds O(n) without holes
	pos := ix.position[id]
	last := len(ix.order) - 1
	ix.order[pos] = ix.order[last]
	ix.position[ix.order[pos]] = pos
	ix.order = ix.order[:last]
	delete(ix.position, id)
	delete(ix.nodes, id)

	return removed
}

// UpsertConnection adds or replaces a connection. Both endpoints must exist.
// Re-upserting an id with different endpoints moves its adjacency entries.
func (ix *Index) UpsertConnection(c diagram.Connection) error {
	if c.ID == "" {
		return zerr.Wrap(diagram.ErrEmptyID, "connection")
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, n := range []diagram.NodeID{c.Source, c.Target} {
		if _, ok := ix.nodes[n]; !ok {
			return zerr.With(zerr.Wrap(diagram.ErrUnknownNode, "connection endpoint"), "node", string(n))
		}
	}

	if old, ok := ix.conns[c.ID]; ok {
		ix.unlink(old)
	}
	ix.conns[c.ID] = c
	link(ix.outgoing, c.Source, c.ID)
	link(ix.incoming, c.Target, c.ID)
	return nil
}

// RemoveConnection deletes a connection. It reports whether it existed.
func (ix *Index) RemoveConnection(id diagram.ConnectionID) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	c, ok := ix.conns[id]
	if !ok {
		return false
	}
	ix.unlink(c)
	delete(ix.conns, id)
	return true
}

func link(adj map[diagram.NodeID]idSet, n diagram.NodeID, id diagram.ConnectionID) {
	set, ok := adj[n]
	if !ok {
		set = make(idSet)
		adj[n] = set
	}
	set[id] = struct{}{}
}

func unlinkOne(adj map[diagram.NodeID]idSet, n diagram.NodeID, id diagram.ConnectionID) {
	set, ok := adj[n]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(adj, n)
	}
}

// unlink must be called with ix.mu held.
func (ix *Index) unlink(c diagram.Connection) {
	unlinkOne(ix.outgoing, c.Source, c.ID)
	unlinkOne(ix.incoming, c.Target, c.ID)
}

// ConnectionsOf returns every connection with n as source or target, sorted.
func (ix *Index) ConnectionsOf(n diagram.NodeID) []diagram.ConnectionID {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.connectionsOf(n)
}

func (ix *Index) connectionsOf(n diagram.NodeID) []diagram.ConnectionID {
	out := make([]diagram.ConnectionID, 0, len(ix.outgoing[n])+len(ix.incoming[n]))
	for id := range ix.outgoing[n] {
		out = append(out, id)
	}
	for id := range ix.incoming[n] {
		// self loops are in both sets
		if _, dup := ix.outgoing[n][id]; !dup {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Outgoing returns the connections leaving n, sorted.
func (ix *Index) Outgoing(n diagram.NodeID) []diagram.ConnectionID {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return sortedIDs(ix.outgoing[n])
}

// Incoming returns the connections arriving at n, sorted.
func (ix *Index) Incoming(n diagram.NodeID) []diagram.ConnectionID {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return sortedIDs(ix.incoming[n])
}

func sortedIDs(set idSet) []diagram.ConnectionID {
	out := make([]diagram.ConnectionID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Between returns the connections from src to dst, sorted.
// Parallel connections share the same pair of endpoints.
func (ix *Index) Between(src, dst diagram.NodeID) []diagram.ConnectionID {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.between(src, dst)
}

func (ix *Index) between(src, dst diagram.NodeID) []diagram.ConnectionID {
	var out []diagram.ConnectionID
	for id := range ix.outgoing[src] {
		if ix.conns[id].Target == dst {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// ExistsConnection reports whether src is already connected to dst.
func (ix *Index) ExistsConnection(src, dst diagram.NodeID) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.between(src, dst)) > 0
}

// ExistsReverseConnection reports whether dst is already connected to src.
func (ix *Index) ExistsReverseConnection(src, dst diagram.NodeID) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.between(dst, src)) > 0
}

// HasPath reports whether to is reachable from from along connection direction.
func (ix *Index) HasPath(from, to diagram.NodeID) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if _, ok := ix.nodes[from]; !ok {
		return false
	}
	visited := map[diagram.NodeID]bool{from: true}
	stack := []diagram.NodeID{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		for id := range ix.outgoing[n] {
			next := ix.conns[id].Target
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// Node returns the node with the given id.
func (ix *Index) Node(id diagram.NodeID) (diagram.Node, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n, ok := ix.nodes[id]
	return n, ok
}

// Connection returns the connection with the given id.
func (ix *Index) Connection(id diagram.ConnectionID) (diagram.Connection, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	c, ok := ix.conns[id]
	return c, ok
}

// Nodes returns every node sorted by id.
func (ix *Index) Nodes() []diagram.Node {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]diagram.Node, 0, len(ix.nodes))
	for _, n := range ix.nodes {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b diagram.Node) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Connections returns every connection sorted by id.
func (ix *Index) Connections() []diagram.Connection {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]diagram.Connection, 0, len(ix.conns))
	for _, c := range ix.conns {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b diagram.Connection) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Bounds returns the routing box of every node.
func (ix *Index) Bounds() []diagram.Rect {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]diagram.Rect, 0, len(ix.order))
	for _, id := range ix.order {
		out = append(out, diagram.ShapeBounds(ix.nodes[id]))
	}
	return out
}

// Len returns the number of nodes and connections.
func (ix *Index) Len() (nodes, connections int) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.nodes), len(ix.conns)
}
