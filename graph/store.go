package graph

import (
	"fmt"
	"sync"

	apperrors "github.com/kbukum/flowgen/errors"
)

// Snapshot is the serialisable form of a graph.
type Snapshot struct {
	Nodes []Node `json:"nodes" validate:"dive"`
	Edges []Edge `json:"edges" validate:"dive"`
}

// Listener observes node updates. It runs outside the store lock.
type Listener func(Node)

// Store owns the graph. Every read returns a copy and every write goes
// through the store mutex.
type Store struct {
	mu        sync.RWMutex
	nodes     map[string]*Node
	order     []string
	edges     []Edge
	listeners []Listener
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{nodes: make(map[string]*Node)}
}

// Listen registers fn for every node update.
func (s *Store) Listen(fn Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Load replaces the whole graph. Edges must reference known nodes, pass
// the connection rules and connect each target handle at most once.
func (s *Store) Load(snap Snapshot) error {
	nodes := make(map[string]*Node, len(snap.Nodes))
	order := make([]string, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		if _, dup := nodes[n.ID]; dup {
			return apperrors.InvalidInput("nodes", fmt.Sprintf("duplicate node id %q", n.ID))
		}
		if !n.Type.Valid() {
			return apperrors.InvalidInput("nodes", fmt.Sprintf("node %q has unknown type %q", n.ID, n.Type))
		}
		c := n.Clone()
		c.Data.Normalize()
		nodes[n.ID] = &c
		order = append(order, n.ID)
	}
	type inbound struct {
		target string
		handle Handle
	}
	connected := make(map[inbound]bool, len(snap.Edges))
	for _, e := range snap.Edges {
		src, tgt := nodes[e.Source], nodes[e.Target]
		if src == nil || tgt == nil {
			return apperrors.InvalidEdge(e.Source, e.Target, string(e.TargetHandle), "unknown node")
		}
		if err := CheckEdge(*src, e.SourceHandle, *tgt, e.TargetHandle); err != nil {
			return apperrors.InvalidEdge(e.Source, e.Target, string(e.TargetHandle), err.Error())
		}
		key := inbound{e.Target, e.TargetHandle}
		if connected[key] {
			return apperrors.InvalidEdge(e.Source, e.Target, string(e.TargetHandle), "handle already connected")
		}
		connected[key] = true
	}

	s.mu.Lock()
	s.nodes = nodes
	s.order = order
	s.edges = append([]Edge(nil), snap.Edges...)
	s.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the graph in insertion order.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Nodes: make([]Node, 0, len(s.order)),
		Edges: append([]Edge(nil), s.edges...),
	}
	for _, id := range s.order {
		snap.Nodes = append(snap.Nodes, s.nodes[id].Clone())
	}
	return snap
}

// AddNode inserts a node. The id must be unused.
func (s *Store) AddNode(n Node) error {
	if !n.Type.Valid() {
		return apperrors.InvalidInput("type", fmt.Sprintf("unknown node type %q", n.Type))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[n.ID]; ok {
		return apperrors.Conflict(fmt.Sprintf("node %q already exists", n.ID))
	}
	c := n.Clone()
	c.Data.Normalize()
	s.nodes[n.ID] = &c
	s.order = append(s.order, n.ID)
	return nil
}

// GetNode returns a copy of the node.
func (s *Store) GetNode(id string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.Clone(), true
}

// EdgesInto returns the edges targeting id.
func (s *Store) EdgesInto(id string) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Edge
	for _, e := range s.edges {
		if e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

// EdgesFrom returns the edges leaving id.
func (s *Store) EdgesFrom(id string) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Edge
	for _, e := range s.edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// Edges returns every edge.
func (s *Store) Edges() []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Edge(nil), s.edges...)
}

// Connect adds an edge after checking the connection rules and that the
// target handle is not already connected.
func (s *Store) Connect(e Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, tgt := s.nodes[e.Source], s.nodes[e.Target]
	if src == nil {
		return apperrors.NotFound("node", e.Source)
	}
	if tgt == nil {
		return apperrors.NotFound("node", e.Target)
	}
	if err := CheckEdge(*src, e.SourceHandle, *tgt, e.TargetHandle); err != nil {
		return apperrors.InvalidEdge(e.Source, e.Target, string(e.TargetHandle), err.Error())
	}
	for _, existing := range s.edges {
		if existing.Target == e.Target && existing.TargetHandle == e.TargetHandle {
			return apperrors.InvalidEdge(e.Source, e.Target, string(e.TargetHandle), "handle already connected")
		}
	}
	s.edges = append(s.edges, e)
	return nil
}

// UpdateNode applies mutate to the stored node under the write lock and
// notifies listeners with the result.
func (s *Store) UpdateNode(id string, mutate func(*Node)) (Node, error) {
	s.mu.Lock()
	n, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		return Node{}, apperrors.NotFound("node", id)
	}
	mutate(n)
	n.ID = id
	n.Data.Normalize()
	updated := n.Clone()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(updated)
	}
	return updated, nil
}
