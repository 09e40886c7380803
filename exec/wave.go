// Package exec implements the wave scheduler and flow executor described
// in spec.md §4.6: partitioning a topological order into conflict-free
// waves, then dispatching each wave's node tasks concurrently.
package exec

import (
	"github.com/vixengraph/rendergraph/access"
	"github.com/vixengraph/rendergraph/node"
)

// Wave is one batch of nodes that may execute concurrently: every
// dependency of a node in the wave sits in an earlier wave, and no two
// nodes in the wave share a resource with a write (spec.md §4.6).
type Wave struct {
	Nodes []node.Handle
}

// Stats summarizes a wave partition (spec.md §4.6 "count waves, average
// wave size, conflict-induced splits").
type Stats struct {
	WaveCount             int
	AverageWaveSize       float64
	ConflictInducedSplits int
}

// WaveScheduler partitions a topological order into waves using the
// greedy O(N·E) algorithm from spec.md §4.6: for each node, start from
// earliest_wave = 1 + max(dep.wave), then advance the wave while the node
// conflicts with anyone already assigned to it.
type WaveScheduler struct {
	tracker *access.Tracker
}

// NewWaveScheduler creates a scheduler reading conflicts from tracker.
func NewWaveScheduler(tracker *access.Tracker) *WaveScheduler {
	return &WaveScheduler{tracker: tracker}
}

// Schedule partitions topoOrder into waves, given each node's direct
// dependencies (used to compute earliest_wave). deps may return nodes
// outside topoOrder; those are ignored (they belong to a different
// subgraph and have no wave assignment here).
func (s *WaveScheduler) Schedule(topoOrder []node.Handle, deps func(node.Handle) []node.Handle) ([]Wave, Stats) {
	waveOf := make(map[node.Handle]int, len(topoOrder))
	var waves []Wave
	splits := 0

	for _, n := range topoOrder {
		earliest := 0
		for _, d := range deps(n) {
			if w, ok := waveOf[d]; ok && w+1 > earliest {
				earliest = w + 1
			}
		}

		wave := earliest
		attempted := earliest
		for {
			if wave >= len(waves) {
				waves = append(waves, Wave{})
			}
			conflict := false
			for _, other := range waves[wave].Nodes {
				if s.tracker.Conflicts(n, other) {
					conflict = true
					break
				}
			}
			if !conflict {
				break
			}
			wave++
		}
		if wave > attempted {
			splits++
		}

		waves[wave].Nodes = append(waves[wave].Nodes, n)
		waveOf[n] = wave
	}

	total := 0
	for _, w := range waves {
		total += len(w.Nodes)
	}
	stats := Stats{WaveCount: len(waves), ConflictInducedSplits: splits}
	if len(waves) > 0 {
		stats.AverageWaveSize = float64(total) / float64(len(waves))
	}
	return waves, stats
}
