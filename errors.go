package rendergraph

import "errors"

// Sentinel errors, in the teacher's package-level-var style.
var (
	// ErrAlreadyCompiled is returned by AddNode/Connect once Compile has
	// succeeded; graph construction is single-threaded and closed once a
	// frame may run (spec.md §5).
	ErrAlreadyCompiled = errors.New("rendergraph: graph already compiled, construction is closed")

	// ErrNotCompiled is returned by RenderFrame if Compile has not yet
	// succeeded.
	ErrNotCompiled = errors.New("rendergraph: graph not compiled")

	// ErrDuplicateNodeName is returned by AddNode for a name already in use.
	ErrDuplicateNodeName = errors.New("rendergraph: duplicate node name")

	// ErrUnknownNodeName is returned by any lookup or Connect call naming
	// a node that was never added.
	ErrUnknownNodeName = errors.New("rendergraph: unknown node name")

	// ErrUnknownSlot is returned when a Connect call names a slot index
	// out of range for the node's declared schema.
	ErrUnknownSlot = errors.New("rendergraph: slot index out of range")

	// ErrUnknownResource is returned by resource lookups (SourceLifetime,
	// cleanup wiring) naming a resource that was never created.
	ErrUnknownResource = errors.New("rendergraph: unknown resource")
)
