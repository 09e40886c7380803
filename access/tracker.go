// Package access implements the resource access tracker described in
// spec.md §4.6: every node's per-resource Read/Write/ReadWrite
// declarations, indexed both by resource and by node, and the conflict
// test the wave scheduler (package exec) uses to decide which nodes may
// run concurrently.
package access

import (
	"sort"

	"github.com/vixengraph/rendergraph/node"
)

// Mode is the access a node makes to a resource through one slot.
type Mode uint8

const (
	Read Mode = iota
	Write
	ReadWrite
)

// IsWrite reports whether m includes a write.
func (m Mode) IsWrite() bool { return m == Write || m == ReadWrite }

// Access records one node's touch of one resource.
type Access struct {
	Node     node.Handle
	Mode     Mode
	SlotIdx  int
	IsOutput bool
}

// Tracker indexes resource -> accesses and node -> (writes, reads)
// (spec.md §4.6).
type Tracker struct {
	byResource map[string][]Access
	writesBy   map[node.Handle]map[string]bool
	readsBy    map[node.Handle]map[string]bool
}

// NewTracker creates an empty access tracker.
func NewTracker() *Tracker {
	return &Tracker{
		byResource: make(map[string][]Access),
		writesBy:   make(map[node.Handle]map[string]bool),
		readsBy:    make(map[node.Handle]map[string]bool),
	}
}

// Record registers that n accessed resourceName via mode at slotIdx.
func (t *Tracker) Record(resourceName string, n node.Handle, mode Mode, slotIdx int, isOutput bool) {
	t.byResource[resourceName] = append(t.byResource[resourceName], Access{
		Node: n, Mode: mode, SlotIdx: slotIdx, IsOutput: isOutput,
	})
	if mode.IsWrite() {
		if t.writesBy[n] == nil {
			t.writesBy[n] = make(map[string]bool)
		}
		t.writesBy[n][resourceName] = true
	}
	if mode == Read || mode == ReadWrite {
		if t.readsBy[n] == nil {
			t.readsBy[n] = make(map[string]bool)
		}
		t.readsBy[n][resourceName] = true
	}
}

// AccessesOf returns every recorded Access for resourceName.
func (t *Tracker) AccessesOf(resourceName string) []Access {
	out := make([]Access, len(t.byResource[resourceName]))
	copy(out, t.byResource[resourceName])
	return out
}

// Writes returns the set of resource names n writes, sorted for
// deterministic iteration.
func (t *Tracker) Writes(n node.Handle) []string {
	return sortedKeys(t.writesBy[n])
}

// Reads returns the set of resource names n reads, sorted for
// deterministic iteration.
func (t *Tracker) Reads(n node.Handle) []string {
	return sortedKeys(t.readsBy[n])
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Conflicts reports whether a and b share a resource with at least one
// write (spec.md §4.6: "Two nodes conflict iff they share a resource and
// at least one writes").
func (t *Tracker) Conflicts(a, b node.Handle) bool {
	if a == b {
		return false
	}
	for res := range t.writesBy[a] {
		if t.readsBy[b][res] || t.writesBy[b][res] {
			return true
		}
	}
	for res := range t.writesBy[b] {
		if t.readsBy[a][res] || t.writesBy[a][res] {
			return true
		}
	}
	return false
}
