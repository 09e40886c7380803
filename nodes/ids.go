package nodes

import "sync/atomic"

var nextTypeID uint32

// allocTypeID hands out a process-unique node.Type.ID for the node types
// this package registers. The registry also keys by name, so the only
// invariant ID must satisfy is uniqueness within one process.
func allocTypeID() uint32 {
	return atomic.AddUint32(&nextTypeID, 1)
}
