package nodes

import (
	"fmt"

	"github.com/gogpu/naga"

	"github.com/vixengraph/rendergraph"
	"github.com/vixengraph/rendergraph/node"
	"github.com/vixengraph/rendergraph/resource"
	"github.com/vixengraph/rendergraph/slot"
)

// ShaderReflectBehavior parses a shader module's source during Compile
// and exposes its binding table, the concrete realization of "inspect
// shader metadata to create dynamic variadic slots" (spec.md §4.2).
// RuleSet has no accessor for its VariadicRule, so this node cannot reach
// into the graph's VariadicRule and populate its table directly; instead
// it exposes Bindings() for the caller to build slot.FromBinding entries
// on sibling node types before registration, and BindingRef/DescriptorType
// to validate a manual Connect call against the live shader.
type ShaderReflectBehavior struct {
	node.BaseBehavior

	source   string
	module   *naga.Module
	bindings []slot.BindingRef
	descKind map[uint32]resource.Kind
}

// NewShaderReflectNode registers a ShaderReflect node type on g and
// returns it along with its Behavior, so the caller can read Bindings()
// and Module() once Compile has run. source is WGSL (or any
// naga-supported shader language) source text reflected at Compile time.
func NewShaderReflectNode(g *rendergraph.Graph, source string) (*node.Type, *ShaderReflectBehavior) {
	behavior := &ShaderReflectBehavior{source: source, descKind: make(map[uint32]resource.Kind)}
	typ := &node.Type{
		ID:         allocTypeID(),
		Name:       "ShaderReflect",
		InputSlots: []slot.Info{},
		OutputSlots: []slot.Info{
			slot.FromStatic(0, resource.KindPassThroughStorage, true, slot.WithMutability(slot.ReadOnly)),
		},
	}
	typ.NewInstance = func(instanceName string) *node.Instance {
		return node.New(instanceName, typ, behavior)
	}
	g.RegisterNodeType(typ)
	return typ, behavior
}

func (b *ShaderReflectBehavior) CompileImpl(ctx *node.CompileContext) error {
	mod, err := naga.ParseWGSL(b.source)
	if err != nil {
		return fmt.Errorf("nodes: ShaderReflect %q: parse: %w", ctx.Instance.Name, err)
	}
	b.module = mod

	for _, binding := range mod.GlobalBindings() {
		ref := slot.BindingRef{
			BindingIndex:   binding.Binding,
			DescriptorType: binding.DescriptorTypeName(),
		}
		b.bindings = append(b.bindings, ref)
		b.descKind[binding.Binding] = descriptorKindFor(binding.DescriptorTypeName())
	}

	ctx.Resources.CreateResource(
		ctx.Instance.Name+".module",
		resource.KindPassThroughStorage,
		resource.OpaqueDescriptor{Tag: "shader-module", Size: uint64(len(b.source))},
		resource.Static,
	)
	return nil
}

// Bindings returns every global binding the shader declares, in
// reflection order.
func (b *ShaderReflectBehavior) Bindings() []slot.BindingRef { return b.bindings }

// Module returns the parsed naga module, or nil before Compile has run.
func (b *ShaderReflectBehavior) Module() *naga.Module { return b.module }

// descriptorKindFor maps a naga descriptor type name onto the engine's
// resource.Kind enum; unrecognized descriptor types fall back to the
// PassThroughStorage escape hatch (spec.md §4.1).
func descriptorKindFor(descriptorType string) resource.Kind {
	switch descriptorType {
	case "texture_2d", "texture_cube":
		return resource.KindImage
	case "storage_buffer", "uniform_buffer":
		return resource.KindBuffer
	case "storage_texture":
		return resource.KindStorageImage
	default:
		return resource.KindPassThroughStorage
	}
}
