package rendergraph

import (
	"github.com/vixengraph/rendergraph/budget"
	"github.com/vixengraph/rendergraph/connect"
	"github.com/vixengraph/rendergraph/exec"
	"github.com/vixengraph/rendergraph/slot"
)

// Option configures a Graph at construction, the teacher's functional
// options style (gg.New(...Option)).
type Option func(*Graph)

// WithBudget sets the per-frame budget (nanoseconds) and deadband
// fraction the capacity tracker compares measured frame duration against
// (spec.md §4.8; default 16.67ms, ±5%).
func WithBudget(budgetNs int64, deadband float64) Option {
	return func(g *Graph) {
		g.capacity = budget.NewCapacityTracker(budgetNs, deadband)
		g.budgetManager = budget.NewManager(g.BudgetRegistry, g.capacity)
	}
}

// WithBudgetStep sets the work-unit step size process_deferred_actions
// applies per adjustment (default 1).
func WithBudgetStep(step int) Option {
	return func(g *Graph) { g.budgetManager.Step = step }
}

// WithExecutorMode selects the FlowExecutor's dispatch mode
// (exec.Sequential/Parallel/Limited) and, for Limited, its goroutine cap.
func WithExecutorMode(mode exec.Mode, limit int) Option {
	return func(g *Graph) {
		g.executor.Close()
		g.executor = exec.NewFlowExecutor(mode, limit)
	}
}

// WithCleanupLag sets how many frames a deferred-destruction record waits
// before running (spec.md §4.9; default 3, a typical swapchain image
// count plus a safety margin).
func WithCleanupLag(frames uint64) Option {
	return func(g *Graph) { g.cleanupLag = frames }
}

// ConnectOption customizes one Connect call's connect.Context before the
// pipeline runs (e.g. an explicit sort key for an accumulation slot, or a
// debug tag).
type ConnectOption func(*connect.Context)

// WithSortKey sets an explicit ordering key for an accumulation
// connection (spec.md §4.4 "Accumulation slots").
func WithSortKey(key int64) ConnectOption {
	return func(ctx *connect.Context) {
		ctx.SortKey = key
		ctx.HasSortKey = true
	}
}

// WithDebugTag attaches a free-form debug tag to the connection, carried
// through DebugTagModifier.
func WithDebugTag(tag string) ConnectOption {
	return func(ctx *connect.Context) { ctx.DebugTag = tag }
}

// WithRoleOverride overrides the target slot's declared role for this
// connection only, consumed by SlotRoleModifier.
func WithRoleOverride(role slot.Role) ConnectOption {
	return func(ctx *connect.Context) {
		ctx.RoleOverride = role
		ctx.HasRoleOverride = true
	}
}
