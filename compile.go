package rendergraph

import (
	"fmt"

	"github.com/vixengraph/rendergraph/exec"
	"github.com/vixengraph/rendergraph/hooks"
	"github.com/vixengraph/rendergraph/node"
)

// Compile runs the nine-step pipeline described in spec.md §4.5. Any
// failure leaves the graph not-compiled; the node that failed is left in
// StateError by its own Setup/Compile call.
func (g *Graph) Compile() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.Hooks.Fire(hooks.PreTopologyBuild); err != nil {
		return err
	}
	if err := g.Topo.Validate(); err != nil {
		return err
	}
	if err := g.Hooks.Fire(hooks.PostTopologyBuild); err != nil {
		return err
	}
	if err := g.Hooks.Fire(hooks.PreExecutionOrder); err != nil {
		return err
	}

	order, err := g.Topo.TopologicalSort()
	if err != nil {
		return err
	}
	g.execOrder = order

	if err := g.Hooks.Fire(hooks.PostExecutionOrder); err != nil {
		return err
	}
	if err := g.Hooks.Fire(hooks.PreCompilation); err != nil {
		return err
	}

	for _, h := range order {
		if err := g.setupAndCompileNode(h); err != nil {
			return err
		}
	}

	// Pre-allocate the event bus heuristically (node_count * 3); the Bus
	// itself grows its subscriber maps lazily, so there is nothing to
	// literally pre-size here beyond documenting the heuristic spec.md
	// §4.5 step 7 calls for.
	_ = len(g.instances) * 3

	g.waves, _ = g.waveScheduler.Schedule(order, func(h node.Handle) []node.Handle {
		return g.Topo.DirectDependencies(h)
	})

	g.compiled = true
	return g.Hooks.Fire(hooks.PostCompilation)
}

// setupAndCompileNode runs Setup (only from StateCreated) then Compile for
// h, wires its post-compile cleanup dependency set, and pushes its cleanup
// closure onto the stack (spec.md §4.5 step 6).
func (g *Graph) setupAndCompileNode(h node.Handle) error {
	inst := g.instances[h]

	if inst.State == node.StateCreated {
		if err := inst.Setup(); err != nil {
			return fmt.Errorf("rendergraph: node %q Setup: %w", inst.Name, err)
		}
	}

	g.compilingNode = h
	err := inst.Compile(g)
	g.compilingNode = node.InvalidHandle
	if err != nil {
		return fmt.Errorf("rendergraph: node %q Compile: %w", inst.Name, err)
	}

	if !g.Cleanup.Has(inst.Name) {
		deps := g.Deps.BuildCleanupDependencies(inst.Name)
		if err := g.Cleanup.Push(inst.Name, deps, func() error {
			return inst.Cleanup(g)
		}); err != nil {
			return fmt.Errorf("rendergraph: node %q cleanup registration: %w", inst.Name, err)
		}
	}
	return nil
}

// recompileDirtyNodes walks execution order and recompiles every node
// flagged NeedsRecompile, in dependency order, tearing down and rebuilding
// each affected node's resources first (spec.md §4.10 step 6).
func (g *Graph) recompileDirtyNodes() error {
	for _, h := range g.execOrder {
		inst := g.instances[h]
		if !inst.NeedsRecompile && !inst.DeferredRecompile {
			continue
		}

		inst.Bundles[0] = node.Bundle{}
		if err := inst.Cleanup(g); err != nil {
			return fmt.Errorf("rendergraph: recompile cleanup for %q: %w", inst.Name, err)
		}
		inst.ResetForRecompile()

		g.compilingNode = h
		err := inst.Compile(g)
		g.compilingNode = node.InvalidHandle
		if err != nil {
			return fmt.Errorf("rendergraph: recompile of %q: %w", inst.Name, err)
		}
	}

	g.waves, _ = g.waveScheduler.Schedule(g.execOrder, func(h node.Handle) []node.Handle {
		return g.Topo.DirectDependencies(h)
	})
	return nil
}

// Mode re-exports exec.Mode so callers constructing a Graph with
// WithExecutorMode need not import the exec package themselves in the
// simplest cases; kept as a thin alias.
type Mode = exec.Mode

const (
	Sequential = exec.Sequential
	Parallel   = exec.Parallel
	Limited    = exec.Limited
)
