package connect

import "sync"

// SlotState tracks whether a variadic slot's binding has been confirmed
// against shader reflection yet (spec.md §4.4 "Created... tentatively at
// connection time (SlotState::Tentative) and validated during the target
// node's Compile").
type SlotState uint8

const (
	SlotTentative SlotState = iota
	SlotValidated
)

// VariadicSlotInfo records everything needed to keep a shader binding fed
// across frames (spec.md §4.4 "VariadicSlotInfo").
type VariadicSlotInfo struct {
	ResourceName       string
	Kind               uint8
	Binding            uint32
	DescriptorType     string
	SourceNode         string
	SourceOutput       int
	HasFieldExtraction bool
	FieldOffset        uintptr
	State              SlotState
}

type variadicKey struct {
	nodeName string
	binding  int
}

// VariadicTable holds every node's variadic slot bindings, keyed by
// (node, binding). Update is idempotent: a repeated connection to the
// same (node, binding) overwrites the prior entry. Entries are not kept
// per bundle; one table entry serves every bundle of the node.
type VariadicTable struct {
	mu      sync.Mutex
	entries map[variadicKey]VariadicSlotInfo
}

// NewVariadicTable creates an empty table.
func NewVariadicTable() *VariadicTable {
	return &VariadicTable{entries: make(map[variadicKey]VariadicSlotInfo)}
}

// Update sets (or overwrites) the binding info for nodeName/binding.
func (t *VariadicTable) Update(nodeName string, binding int, info VariadicSlotInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries == nil {
		t.entries = make(map[variadicKey]VariadicSlotInfo)
	}
	t.entries[variadicKey{nodeName: nodeName, binding: binding}] = info
}

// Get returns the current binding info for nodeName/binding, if any.
func (t *VariadicTable) Get(nodeName string, binding int) (VariadicSlotInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	info, ok := t.entries[variadicKey{nodeName: nodeName, binding: binding}]
	return info, ok
}

// MarkValidated transitions a slot from Tentative to Validated, called
// once the target node's Compile has confirmed the binding against its
// reflected shader metadata.
func (t *VariadicTable) MarkValidated(nodeName string, binding int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := variadicKey{nodeName: nodeName, binding: binding}
	if info, ok := t.entries[key]; ok {
		info.State = SlotValidated
		t.entries[key] = info
	}
}

// ForNode returns every variadic binding currently recorded for nodeName.
func (t *VariadicTable) ForNode(nodeName string) []VariadicSlotInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []VariadicSlotInfo
	for k, v := range t.entries {
		if k.nodeName == nodeName {
			out = append(out, v)
		}
	}
	return out
}
