package rendergraph

import (
	"fmt"
	"time"

	"github.com/vixengraph/rendergraph/budget"
	"github.com/vixengraph/rendergraph/event"
	"github.com/vixengraph/rendergraph/exec"
	"github.com/vixengraph/rendergraph/node"
	"github.com/vixengraph/rendergraph/resource"
)

// SenderID identifies the graph itself as an event.Sender for the
// standard messages it publishes.
const SenderID event.SenderID = "rendergraph.Graph"

// FrameResult summarizes one RenderFrame call: the executor's wave
// report plus the adaptive-budget outcome for that frame (spec.md §4.10
// step 11, "return the final PresentResult or an abstract equivalent" —
// the core has no presentation surface of its own, so this is the
// equivalent it returns).
type FrameResult struct {
	FrameNumber    uint64
	Duration       time.Duration
	Report         exec.Report
	BudgetState    budget.State
	AverageNs      int64
	Utilization    float64
	AdjustedTaskID string
}

// RenderFrame advances the graph by one frame, implementing spec.md
// §4.10's eleven-step sequence. deltaSeconds is the caller-measured wall
// time since the previous frame.
func (g *Graph) RenderFrame(deltaSeconds float64) (FrameResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.compiled {
		return FrameResult{}, ErrNotCompiled
	}

	// 1. Update time.
	g.deltaSeconds = deltaSeconds
	g.totalSeconds += deltaSeconds
	g.frameNumber++

	// 2. Fire FrameStart. Delivery is synchronous, so any handler that
	// calls MarkNeedsRecompile (step 3, "may mark nodes dirty") has
	// already taken effect before step 6 runs below.
	g.Bus.Publish(event.NewFrameStart(SenderID, g.frameNumber))

	// 4 & 5. The capacity tracker observes the previous frame's duration
	// and the registry's deferred action runs in the same pass (Manager
	// couples both, spec.md §4.8). The first frame has no previous
	// duration, so the tracker is not fed and the state stays Within.
	var result budget.Result
	var adjustedTaskID string
	if g.lastFrameNanos > 0 {
		result, adjustedTaskID = g.budgetManager.ProcessFrame(g.lastFrameNanos)
	}
	switch result.State {
	case budget.Overrun:
		g.Bus.Publish(event.NewBudgetOverrun(SenderID, result.AverageNs, result.Utilization))
	case budget.Available:
		g.Bus.Publish(event.NewBudgetAvailable(SenderID, result.AverageNs, result.Utilization))
	}

	// 6. Recompile dirty nodes in dependency order.
	if err := g.recompileDirtyNodes(); err != nil {
		return FrameResult{}, err
	}

	// 7. Loop activity is set externally via SetLoopActive; Instance.
	// ShouldExecuteThisFrame consults it inside executeNode below.

	start := time.Now()

	// 8. Execute every node whose loop gate is open, wave by wave.
	report := g.executor.RunFrame(g.waves, func(h node.Handle) error {
		return g.executeNode(h)
	})

	duration := time.Since(start)
	g.lastFrameNanos = duration.Nanoseconds()

	// 9. Run deferred destruction for records past their lag.
	if errs := g.Deferred.Advance(g.frameNumber, g.cleanupLag); len(errs) > 0 {
		Logger().Error("rendergraph: deferred destruction errors", "count", len(errs), "first", errs[0])
	}

	// 10. Fire FrameEnd.
	g.Bus.Publish(event.NewFrameEnd(SenderID, g.frameNumber, duration))

	if len(report.Errors) > 0 {
		return FrameResult{}, fmt.Errorf("rendergraph: frame %d: %w", g.frameNumber, report.Errors[0])
	}

	// 11. Return the frame result.
	return FrameResult{
		FrameNumber:    g.frameNumber,
		Duration:       duration,
		Report:         report,
		AdjustedTaskID: adjustedTaskID,
		BudgetState:    result.State,
		AverageNs:      result.AverageNs,
		Utilization:    result.Utilization,
	}, nil
}

// executeNode wires up inst's per-frame input bundle from the topology's
// direct edges, runs every task, routes the total measured duration into
// the budget registry under the node's own name as task id (a node that
// wants adaptive budgeting registers a profile under that same name via
// GetTaskProfileRegistry), and returns to the executor's worker.
func (g *Graph) executeNode(h node.Handle) error {
	inst := g.instances[h]
	if !inst.ShouldExecuteThisFrame(func(name string) bool { return g.loopActive[name] }) {
		return nil
	}

	g.wireFrameInputs(h, inst)

	// arrayLengths is nil: this graph only ever allocates a single Bundle
	// per node (see node.Instance.Bundles / compile.go), so there is no
	// per-task resource binding for DetermineTaskCount to size against.
	// Every node therefore executes exactly one task. This is a
	// documented scope cut (DESIGN.md), not an oversight.
	taskCount := node.DetermineTaskCount(inst.Type.InputSlots, nil)
	start := time.Now()

	for i := 0; i < taskCount; i++ {
		ctx := &node.ExecuteContext{
			Instance:     inst,
			TaskIndex:    i,
			Bundle:       &inst.Bundles[0],
			DeltaSeconds: g.deltaSeconds,
			TotalSeconds: g.totalSeconds,
		}
		if err := inst.ExecuteTask(ctx); err != nil {
			return err
		}
	}
	inst.FinishExecute()

	elapsed := time.Since(start).Nanoseconds()
	g.BudgetRegistry.RecordMeasurement(inst.Name, elapsed)
	return nil
}

// wireFrameInputs copies each direct-edge source's current output
// resource into the target's Bundle.Inputs slot, refreshed every frame so
// Transient producers (whose handle is only valid for the frame that
// created it) are always read fresh (spec.md §4.1 Execute-role slots).
func (g *Graph) wireFrameInputs(h node.Handle, inst *node.Instance) {
	inputs := make([]*resource.Resource, len(inst.Type.InputSlots))
	for _, e := range g.Topo.IncomingEdges(h) {
		srcInst := g.instances[e.Src]
		outs := srcInst.Bundles[0].Outputs
		if e.SrcOutIdx < 0 || e.SrcOutIdx >= len(outs) {
			continue
		}
		if e.TgtInIdx < 0 || e.TgtInIdx >= len(inputs) {
			continue
		}
		inputs[e.TgtInIdx] = outs[e.SrcOutIdx]
	}
	inst.Bundles[0].Inputs = inputs
}
