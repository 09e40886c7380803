// Package node implements the node type registry and the per-instance
// four-phase lifecycle (Setup/Compile/Execute/Cleanup) described in
// spec.md §4.2. NodeType is the immutable blueprint; Instance is the
// live, mutable per-graph state built from one.
package node

import (
	"reflect"

	"github.com/vixengraph/rendergraph/slot"
)

// PipelineKind names the GPU pipeline category a node requires, used by
// the embedding application to pick a compatible queue/command buffer.
// The core never interprets this beyond carrying it — it is opaque
// metadata handed to the GPU driver collaborator (spec.md §1).
type PipelineKind uint8

const (
	PipelineNone PipelineKind = iota
	PipelineGraphics
	PipelineCompute
	PipelineRayTracing
	PipelineTransfer
)

// Capability is a single named device capability bit
// ("RTXSupport", "SwapchainMaintenance3", ...); the core treats these as
// opaque strings and only aggregates the set a NodeType declares it needs.
type Capability string

// ParamDef declares one parameter a NodeType accepts.
type ParamDef struct {
	Name     string
	Kind     ParamKind
	Required bool
	Default  ParamValue
}

// Factory produces a new, unconfigured Instance for a NodeType.
type Factory func(instanceName string) *Instance

// Type is the immutable blueprint shared by every Instance created from
// it (spec.md §3 NodeType, §4.2 "immutable after registration").
type Type struct {
	ID   uint32
	Name string

	// GoType is the language-level type used for the Registry's
	// by-reflect.Type lookup mode (spec.md §4.2 "three lookup modes").
	GoType reflect.Type

	InputSlots  []slot.Info
	OutputSlots []slot.Info
	Params      []ParamDef

	RequiredCapabilities []Capability
	Pipeline             PipelineKind

	NewInstance Factory
}

// ParamDefByName finds a parameter definition by name, or reports ok=false.
func (t *Type) ParamDefByName(name string) (ParamDef, bool) {
	for _, p := range t.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamDef{}, false
}
