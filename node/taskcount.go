package node

import "github.com/vixengraph/rendergraph/slot"

// DetermineTaskCount implements spec.md §4.2's rule:
//
//	if every input slot is NodeLevel, task_count = 1;
//	otherwise task_count = length of the driving TaskLevel/InstanceLevel
//	input array.
//
// arrayLengths maps the index of each Array-mode input slot to its
// current resolved length (the graph fills this in from the connection
// that drives that slot). If more than one non-NodeLevel slot has a
// length, the largest is used — callers are expected to have validated at
// Compile time that driving arrays agree in length.
func DetermineTaskCount(inputSlots []slot.Info, arrayLengths map[int]int) int {
	driving := false
	count := 1
	for _, s := range inputSlots {
		if s.Scope == slot.NodeLevel {
			continue
		}
		if s.ArrayMode != slot.Array {
			continue
		}
		n, ok := arrayLengths[s.Index]
		if !ok {
			continue
		}
		if !driving || n > count {
			count = n
		}
		driving = true
	}
	if !driving {
		return 1
	}
	if count < 1 {
		return 1
	}
	return count
}
