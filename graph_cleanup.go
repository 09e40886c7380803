package rendergraph

import (
	"fmt"

	"github.com/vixengraph/rendergraph/event"
)

// CleanupAll tears down every node in reverse-topological order
// (consumers before producers) and publishes CleanupCompleted (spec.md
// §4.9, §4.7).
func (g *Graph) CleanupAll() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	err := g.Cleanup.RunAll()
	g.Bus.Publish(event.NewCleanupCompleted(SenderID, len(g.execOrder)))
	if err != nil {
		return fmt.Errorf("rendergraph: CleanupAll: %w", err)
	}
	return nil
}

// CleanupSubgraph tears down nodeName and, transitively, any producer
// whose last consumer was just cleaned (spec.md §4.9 "partial cleanup...
// walks backwards... cleans a producer only when its dependent-count
// hits zero"). Returns the cleanup-stack plan that was executed.
func (g *Graph) CleanupSubgraph(nodeName string, dryRun bool) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.byName[nodeName]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeName, nodeName)
	}
	plan, err := g.Cleanup.RunPartial([]string{nodeName}, dryRun)
	if err != nil {
		return plan, fmt.Errorf("rendergraph: CleanupSubgraph(%q): %w", nodeName, err)
	}
	if !dryRun {
		g.Bus.Publish(event.NewCleanupCompleted(SenderID, len(plan)))
	}
	return plan, nil
}

// CleanupByTag cleans every node carrying tag, plus any producer whose
// dependents are now all cleaned.
func (g *Graph) CleanupByTag(tag string, dryRun bool) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var seeds []string
	for _, inst := range g.instances {
		if inst.HasTag(tag) {
			seeds = append(seeds, inst.Name)
		}
	}
	plan, err := g.Cleanup.RunPartial(seeds, dryRun)
	if err != nil {
		return plan, fmt.Errorf("rendergraph: CleanupByTag(%q): %w", tag, err)
	}
	if !dryRun {
		g.Bus.Publish(event.NewCleanupCompleted(SenderID, len(plan)))
	}
	return plan, nil
}

// CleanupByType cleans every instance of typeName, plus any producer
// whose dependents are now all cleaned.
func (g *Graph) CleanupByType(typeName string, dryRun bool) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var seeds []string
	for _, inst := range g.instances {
		if inst.Type != nil && inst.Type.Name == typeName {
			seeds = append(seeds, inst.Name)
		}
	}
	plan, err := g.Cleanup.RunPartial(seeds, dryRun)
	if err != nil {
		return plan, fmt.Errorf("rendergraph: CleanupByType(%q): %w", typeName, err)
	}
	if !dryRun {
		g.Bus.Publish(event.NewCleanupCompleted(SenderID, len(plan)))
	}
	return plan, nil
}

// HandleCleanupRequested is a ready-made event.Subscribe handler a caller
// can wire to CleanupRequested messages so other nodes (or an embedding
// application) can trigger cleanup purely through the event bus (spec.md
// §4.7's standard message list includes CleanupRequested for exactly this).
func (g *Graph) HandleCleanupRequested(msg event.CleanupRequested) {
	var err error
	switch msg.Scope {
	case event.ScopeFull:
		err = g.CleanupAll()
	case event.ScopeSpecific:
		_, err = g.CleanupSubgraph(msg.Target, false)
	case event.ScopeByTag:
		_, err = g.CleanupByTag(msg.Target, false)
	case event.ScopeByType:
		_, err = g.CleanupByType(msg.Target, false)
	}
	if err != nil {
		Logger().Error("rendergraph: CleanupRequested handler failed", "scope", msg.Scope.String(), "target", msg.Target, "error", err)
	}
}
