package exec

import (
	"fmt"
	"sync"
	"time"

	"github.com/vixengraph/rendergraph/internal/parallel"
	"github.com/vixengraph/rendergraph/node"
)

// Mode selects how a FlowExecutor dispatches a wave's tasks (spec.md
// §4.6 "TBB-style executor... Modes: Sequential, Parallel, Limited(N)").
type Mode uint8

const (
	// Sequential runs every node one at a time, useful for debugging and
	// deterministic reproduction of a failure.
	Sequential Mode = iota
	// Parallel runs an entire wave's nodes concurrently on a pool of
	// GOMAXPROCS workers.
	Parallel
	// Limited runs a wave's nodes concurrently, capped at a fixed
	// goroutine count.
	Limited
)

// TaskFunc is one node's unit of work for one frame. It returns an error
// if the node's task failed; FlowExecutor captures it without aborting
// the rest of the wave.
type TaskFunc func(n node.Handle) error

// NodeError pairs a failed node with the error its task returned.
type NodeError struct {
	Node node.Handle
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("exec: node %v: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// Report summarizes one RunFrame call (spec.md §4.6 "stats (counts,
// last/avg duration)").
type Report struct {
	WaveCount     int
	NodeCount     int
	Errors        []*NodeError
	LastDuration  time.Duration
	TotalDuration time.Duration
}

// FlowExecutor dispatches waves of node tasks according to Mode, built on
// an adapted work-stealing pool (internal/parallel.WorkerPool) rather
// than a TBB flow-graph binding — no such library exists anywhere in the
// retrieval pack (see DESIGN.md). The wave scheduler remains the
// language-agnostic reference partition; this executor only decides how
// each wave's already-conflict-free node set is dispatched.
type FlowExecutor struct {
	mode  Mode
	pool  *parallel.WorkerPool
	limit int

	mu            sync.Mutex
	totalDuration time.Duration
	lastDuration  time.Duration
	runCount      int
}

// NewFlowExecutor creates an executor in mode. limit is only meaningful
// for Limited mode (concurrent goroutine cap); Sequential mode creates no
// worker pool.
func NewFlowExecutor(mode Mode, limit int) *FlowExecutor {
	e := &FlowExecutor{mode: mode, limit: limit}
	if mode != Sequential {
		workers := limit
		if mode == Parallel {
			workers = 0 // NewWorkerPool(0) defaults to GOMAXPROCS
		}
		e.pool = parallel.NewWorkerPool(workers)
	}
	return e
}

// Close releases the underlying worker pool, if any.
func (e *FlowExecutor) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
}

// RunFrame dispatches every wave in order, running each wave's nodes
// according to Mode before moving to the next wave (a wave may only start
// once its predecessor's nodes, which include all its dependencies, have
// finished). Node task errors are captured in the returned Report rather
// than aborting the remaining waves (spec.md §4.6's "Captures per-node
// exceptions optionally").
func (e *FlowExecutor) RunFrame(waves []Wave, task TaskFunc) Report {
	start := time.Now()
	report := Report{WaveCount: len(waves)}

	for _, wave := range waves {
		report.NodeCount += len(wave.Nodes)
		errs := e.runWave(wave, task)
		report.Errors = append(report.Errors, errs...)
	}

	elapsed := time.Since(start)
	e.mu.Lock()
	e.lastDuration = elapsed
	e.totalDuration += elapsed
	e.runCount++
	e.mu.Unlock()

	report.LastDuration = elapsed
	report.TotalDuration = e.totalDuration
	return report
}

func (e *FlowExecutor) runWave(wave Wave, task TaskFunc) []*NodeError {
	if e.mode == Sequential {
		var errs []*NodeError
		for _, n := range wave.Nodes {
			if err := task(n); err != nil {
				errs = append(errs, &NodeError{Node: n, Err: err})
			}
		}
		return errs
	}

	var mu sync.Mutex
	var errs []*NodeError
	work := make([]func(), len(wave.Nodes))
	for i, n := range wave.Nodes {
		n := n
		work[i] = func() {
			if err := task(n); err != nil {
				mu.Lock()
				errs = append(errs, &NodeError{Node: n, Err: err})
				mu.Unlock()
			}
		}
	}
	e.pool.ExecuteAll(work)
	return errs
}

// AverageDuration returns the mean RunFrame duration across every call so
// far, or zero if RunFrame has never been called.
func (e *FlowExecutor) AverageDuration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runCount == 0 {
		return 0
	}
	return e.totalDuration / time.Duration(e.runCount)
}

// LastDuration returns the duration of the most recent RunFrame call.
func (e *FlowExecutor) LastDuration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastDuration
}
