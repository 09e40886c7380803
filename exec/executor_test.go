package exec

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/vixengraph/rendergraph/node"
)

func TestFlowExecutorSequentialRunsAllNodes(t *testing.T) {
	e := NewFlowExecutor(Sequential, 0)
	defer e.Close()

	var count atomic.Int64
	waves := []Wave{{Nodes: []node.Handle{0, 1, 2}}}

	report := e.RunFrame(waves, func(n node.Handle) error {
		count.Add(1)
		return nil
	})

	if count.Load() != 3 {
		t.Fatalf("count = %d, want 3", count.Load())
	}
	if report.NodeCount != 3 || len(report.Errors) != 0 {
		t.Fatalf("report = %+v", report)
	}
}

func TestFlowExecutorParallelRunsAllNodes(t *testing.T) {
	e := NewFlowExecutor(Parallel, 0)
	defer e.Close()

	var count atomic.Int64
	waves := []Wave{{Nodes: []node.Handle{0, 1, 2, 3}}}

	e.RunFrame(waves, func(n node.Handle) error {
		count.Add(1)
		return nil
	})

	if count.Load() != 4 {
		t.Fatalf("count = %d, want 4", count.Load())
	}
}

func TestFlowExecutorCapturesNodeErrors(t *testing.T) {
	e := NewFlowExecutor(Sequential, 0)
	defer e.Close()

	waves := []Wave{{Nodes: []node.Handle{0, 1}}}
	report := e.RunFrame(waves, func(n node.Handle) error {
		if n == 1 {
			return errors.New("boom")
		}
		return nil
	})

	if len(report.Errors) != 1 || report.Errors[0].Node != 1 {
		t.Fatalf("Errors = %v, want one error for node 1", report.Errors)
	}
}

func TestFlowExecutorDoesNotAbortRemainingWaves(t *testing.T) {
	e := NewFlowExecutor(Sequential, 0)
	defer e.Close()

	waves := []Wave{
		{Nodes: []node.Handle{0}},
		{Nodes: []node.Handle{1}},
	}
	var ran []node.Handle
	report := e.RunFrame(waves, func(n node.Handle) error {
		ran = append(ran, n)
		if n == 0 {
			return errors.New("boom")
		}
		return nil
	})

	if len(ran) != 2 {
		t.Fatalf("ran = %v, want both waves to run despite wave 0's error", ran)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("Errors = %v, want 1", report.Errors)
	}
}

func TestFlowExecutorTracksDuration(t *testing.T) {
	e := NewFlowExecutor(Sequential, 0)
	defer e.Close()

	waves := []Wave{{Nodes: []node.Handle{0}}}
	e.RunFrame(waves, func(node.Handle) error { return nil })
	e.RunFrame(waves, func(node.Handle) error { return nil })

	if e.AverageDuration() < 0 {
		t.Fatal("AverageDuration should be non-negative")
	}
}
