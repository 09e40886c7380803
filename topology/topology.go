// Package topology implements the render graph's DAG: node membership,
// edges, cycle detection, and topological ordering (spec.md §4.3).
//
// Nodes are addressed by dense arena index (node.Handle) rather than by
// pointer, matching spec.md §9's "model node<->graph cycles as an arena,
// not back-pointers" design note; the topology never stores a node.Instance
// itself, only handles and the edges between them.
package topology

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vixengraph/rendergraph/node"
)

// Sentinel errors, in the teacher's package-level-var style.
var (
	ErrCycleDetected    = errors.New("topology: cycle detected")
	ErrUnknownNode      = errors.New("topology: unknown node handle")
	ErrDanglingEdge     = errors.New("topology: edge endpoint is not a member of the topology")
	ErrInvalidSlotIndex = errors.New("topology: edge slot index out of range for node schema")
)

// Edge is the coalesced representation of one connection:
// (src_node, src_out_idx, tgt_node, tgt_in_idx). Equal tuples are never
// duplicated (spec.md §3).
type Edge struct {
	Src       node.Handle
	SrcOutIdx int
	Tgt       node.Handle
	TgtInIdx  int
}

type nodeEntry struct {
	handle     node.Handle
	instance   *node.Instance
	insertSeq  int
	present    bool
	outSlots   int
	inSlots    int
}

// Topology owns the node set and edge list for one graph. It is built and
// mutated only while the graph is being constructed; after the first
// Compile, any mutation must clear the owning graph's IsCompiled flag
// (spec.md §4.3) — Topology itself does not know about compilation state,
// the facade enforces that rule by calling back in.
type Topology struct {
	nodes   map[node.Handle]*nodeEntry
	edges   []Edge
	nextSeq int
}

// New creates an empty topology.
func New() *Topology {
	return &Topology{nodes: make(map[node.Handle]*nodeEntry)}
}

// AddNode registers inst under handle, recording its declared slot counts
// for later edge-index validation. Re-adding the same handle updates the
// instance pointer but keeps its original insertion order (so topo-sort
// tie-breaking never moves an existing node just because it was touched
// again).
func (t *Topology) AddNode(h node.Handle, inst *node.Instance) {
	if e, ok := t.nodes[h]; ok {
		e.instance = inst
		e.present = true
		if inst.Type != nil {
			e.inSlots = len(inst.Type.InputSlots)
			e.outSlots = len(inst.Type.OutputSlots)
		}
		return
	}
	e := &nodeEntry{handle: h, instance: inst, insertSeq: t.nextSeq, present: true}
	if inst.Type != nil {
		e.inSlots = len(inst.Type.InputSlots)
		e.outSlots = len(inst.Type.OutputSlots)
	}
	t.nextSeq++
	t.nodes[h] = e
}

// RemoveNode deletes h and cascades to remove every edge touching it.
func (t *Topology) RemoveNode(h node.Handle) {
	if _, ok := t.nodes[h]; !ok {
		return
	}
	delete(t.nodes, h)
	kept := t.edges[:0]
	for _, e := range t.edges {
		if e.Src == h || e.Tgt == h {
			continue
		}
		kept = append(kept, e)
	}
	t.edges = kept
}

// HasNode reports whether h is currently a member.
func (t *Topology) HasNode(h node.Handle) bool {
	_, ok := t.nodes[h]
	return ok
}

// Nodes returns every member handle, in insertion order.
func (t *Topology) Nodes() []node.Handle {
	out := make([]node.Handle, 0, len(t.nodes))
	entries := make([]*nodeEntry, 0, len(t.nodes))
	for _, e := range t.nodes {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].insertSeq < entries[j].insertSeq })
	for _, e := range entries {
		out = append(out, e.handle)
	}
	return out
}

// AddEdge adds a deduplicated edge between two member nodes. Equal edges
// (same four-tuple) already present are no-ops.
func (t *Topology) AddEdge(e Edge) error {
	if !t.HasNode(e.Src) {
		return fmt.Errorf("%w: src %v", ErrUnknownNode, e.Src)
	}
	if !t.HasNode(e.Tgt) {
		return fmt.Errorf("%w: tgt %v", ErrUnknownNode, e.Tgt)
	}
	for _, existing := range t.edges {
		if existing == e {
			return nil
		}
	}
	t.edges = append(t.edges, e)
	return nil
}

// RemoveEdge removes the first edge matching e exactly, if any.
func (t *Topology) RemoveEdge(e Edge) {
	for i, existing := range t.edges {
		if existing == e {
			t.edges = append(t.edges[:i], t.edges[i+1:]...)
			return
		}
	}
}

// Edges returns every edge currently stored, in insertion order.
func (t *Topology) Edges() []Edge {
	out := make([]Edge, len(t.edges))
	copy(out, t.edges)
	return out
}

// OutgoingEdges returns edges whose Src is h.
func (t *Topology) OutgoingEdges(h node.Handle) []Edge {
	var out []Edge
	for _, e := range t.edges {
		if e.Src == h {
			out = append(out, e)
		}
	}
	return out
}

// IncomingEdges returns edges whose Tgt is h.
func (t *Topology) IncomingEdges(h node.Handle) []Edge {
	var out []Edge
	for _, e := range t.edges {
		if e.Tgt == h {
			out = append(out, e)
		}
	}
	return out
}

func (t *Topology) successors(h node.Handle) []node.Handle {
	var out []node.Handle
	for _, e := range t.edges {
		if e.Src == h {
			out = append(out, e.Tgt)
		}
	}
	return out
}

// Roots returns nodes with no incoming edges, in insertion order.
func (t *Topology) Roots() []node.Handle {
	hasIncoming := make(map[node.Handle]bool)
	for _, e := range t.edges {
		hasIncoming[e.Tgt] = true
	}
	var out []node.Handle
	for _, h := range t.Nodes() {
		if !hasIncoming[h] {
			out = append(out, h)
		}
	}
	return out
}

// Leaves returns nodes with no outgoing edges, in insertion order.
func (t *Topology) Leaves() []node.Handle {
	hasOutgoing := make(map[node.Handle]bool)
	for _, e := range t.edges {
		hasOutgoing[e.Src] = true
	}
	var out []node.Handle
	for _, h := range t.Nodes() {
		if !hasOutgoing[h] {
			out = append(out, h)
		}
	}
	return out
}

// HasCycle runs depth-first search with a recursion (gray) stack, O(V+E)
// (spec.md §4.3).
func (t *Topology) HasCycle() bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[node.Handle]int, len(t.nodes))
	for _, h := range t.Nodes() {
		color[h] = white
	}

	var visit func(h node.Handle) bool
	visit = func(h node.Handle) bool {
		color[h] = gray
		for _, s := range t.successors(h) {
			switch color[s] {
			case gray:
				return true
			case white:
				if visit(s) {
					return true
				}
			}
		}
		color[h] = black
		return false
	}

	for _, h := range t.Nodes() {
		if color[h] == white {
			if visit(h) {
				return true
			}
		}
	}
	return false
}

// TopologicalSort returns a valid execution order via reverse-post-order
// DFS, tie-broken by insertion order for determinism (spec.md §4.3). It
// returns ErrCycleDetected if the topology is not acyclic.
func (t *Topology) TopologicalSort() ([]node.Handle, error) {
	if t.HasCycle() {
		return nil, ErrCycleDetected
	}

	visited := make(map[node.Handle]bool, len(t.nodes))
	var order []node.Handle

	var visit func(h node.Handle)
	visit = func(h node.Handle) {
		if visited[h] {
			return
		}
		visited[h] = true
		for _, s := range t.successors(h) {
			visit(s)
		}
		order = append(order, h)
	}

	for _, h := range t.Nodes() {
		visit(h)
	}

	// order is currently post-order; reverse it for topological order.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

// DirectDependencies returns the handles h's incoming edges originate from.
func (t *Topology) DirectDependencies(h node.Handle) []node.Handle {
	var out []node.Handle
	for _, e := range t.IncomingEdges(h) {
		out = append(out, e.Src)
	}
	return out
}

// DirectDependents returns the handles h's outgoing edges point to.
func (t *Topology) DirectDependents(h node.Handle) []node.Handle {
	return t.successors(h)
}

// TransitiveDependencies returns every node that (transitively) must
// execute before h, not including h itself.
func (t *Topology) TransitiveDependencies(h node.Handle) []node.Handle {
	seen := make(map[node.Handle]bool)
	var walk func(node.Handle)
	walk = func(cur node.Handle) {
		for _, dep := range t.DirectDependencies(cur) {
			if !seen[dep] {
				seen[dep] = true
				walk(dep)
			}
		}
	}
	walk(h)
	return sortedHandles(seen)
}

// TransitiveDependents returns every node that (transitively) depends on h,
// not including h itself.
func (t *Topology) TransitiveDependents(h node.Handle) []node.Handle {
	seen := make(map[node.Handle]bool)
	var walk func(node.Handle)
	walk = func(cur node.Handle) {
		for _, dep := range t.DirectDependents(cur) {
			if !seen[dep] {
				seen[dep] = true
				walk(dep)
			}
		}
	}
	walk(h)
	return sortedHandles(seen)
}

func sortedHandles(set map[node.Handle]bool) []node.Handle {
	out := make([]node.Handle, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate checks: no cycles, every edge's endpoints are members, and
// every edge's slot indices are legal for the endpoint's declared schema
// (spec.md §4.3).
func (t *Topology) Validate() error {
	if t.HasCycle() {
		return ErrCycleDetected
	}
	for _, e := range t.edges {
		srcEntry, ok := t.nodes[e.Src]
		if !ok {
			return fmt.Errorf("%w: src %v", ErrDanglingEdge, e.Src)
		}
		tgtEntry, ok := t.nodes[e.Tgt]
		if !ok {
			return fmt.Errorf("%w: tgt %v", ErrDanglingEdge, e.Tgt)
		}
		if e.SrcOutIdx < 0 || (srcEntry.outSlots > 0 && e.SrcOutIdx >= srcEntry.outSlots) {
			return fmt.Errorf("%w: src %v out idx %d", ErrInvalidSlotIndex, e.Src, e.SrcOutIdx)
		}
		if e.TgtInIdx < 0 || (tgtEntry.inSlots > 0 && e.TgtInIdx >= tgtEntry.inSlots) {
			return fmt.Errorf("%w: tgt %v in idx %d", ErrInvalidSlotIndex, e.Tgt, e.TgtInIdx)
		}
	}
	return nil
}
