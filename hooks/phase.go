// Package hooks implements graph-level lifecycle callbacks (spec.md §4.5
// "compile performs, in order: Fire GraphPhase::PreTopologyBuild hooks...")
// and the dependency tracker used to compute each node's cleanup
// dependency set (spec.md §4.8).
package hooks

import "fmt"

// GraphPhase names a point in the compile pipeline (spec.md §4.5) at which
// graph-level (not per-node) hooks may run.
type GraphPhase uint8

const (
	PreTopologyBuild GraphPhase = iota
	PostTopologyBuild
	PreExecutionOrder
	PostExecutionOrder
	PreCompilation
	PostCompilation
)

func (p GraphPhase) String() string {
	switch p {
	case PreTopologyBuild:
		return "PreTopologyBuild"
	case PostTopologyBuild:
		return "PostTopologyBuild"
	case PreExecutionOrder:
		return "PreExecutionOrder"
	case PostExecutionOrder:
		return "PostExecutionOrder"
	case PreCompilation:
		return "PreCompilation"
	case PostCompilation:
		return "PostCompilation"
	default:
		return fmt.Sprintf("GraphPhase(%d)", uint8(p))
	}
}

// Callback is a graph-level hook function. It receives no per-node
// context since it fires once per phase transition, not per node.
type Callback func() error

// Registry holds the ordered set of callbacks for each GraphPhase,
// fired in registration order (spec.md §4.5).
type Registry struct {
	callbacks map[GraphPhase][]Callback
}

// NewRegistry creates an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{callbacks: make(map[GraphPhase][]Callback)}
}

// On registers fn to run when phase fires.
func (r *Registry) On(phase GraphPhase, fn Callback) {
	r.callbacks[phase] = append(r.callbacks[phase], fn)
}

// Fire runs every callback registered for phase, in registration order,
// stopping (and returning) at the first error.
func (r *Registry) Fire(phase GraphPhase) error {
	for _, fn := range r.callbacks[phase] {
		if err := fn(); err != nil {
			return fmt.Errorf("hooks: %s callback failed: %w", phase, err)
		}
	}
	return nil
}
