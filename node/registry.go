package node

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Registry holds every registered NodeType, keyed three ways: by string
// name, by integer id, and by language-level type (spec.md §4.2 "three
// lookup modes"). Grounded on the teacher's recording.Register /
// recording.NewBackend registration pattern: panics on nil factory or a
// duplicate name, since a duplicate registration is a program-startup
// mistake that should be caught immediately rather than silently
// overwriting a type.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]*Type
	byID     map[uint32]*Type
	byGoType map[reflect.Type]*Type
}

// NewRegistry creates an empty node type registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:   make(map[string]*Type),
		byID:     make(map[uint32]*Type),
		byGoType: make(map[reflect.Type]*Type),
	}
}

// Register adds typ to the registry. Idempotent for an identical
// (ID, Name) pair already registered (spec.md §6 "idempotent by
// (type_id, type_name)"); panics if a *different* type was already
// registered under the same name or id, or if typ.NewInstance is nil.
func (r *Registry) Register(typ *Type) {
	if typ == nil {
		panic("node: Register called with nil Type")
	}
	if typ.NewInstance == nil {
		panic(fmt.Sprintf("node: Register(%q) has a nil factory", typ.Name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[typ.Name]; ok {
		if existing == typ || (existing.ID == typ.ID && existing.Name == typ.Name) {
			return
		}
		panic(fmt.Sprintf("node: Register called twice for %q", typ.Name))
	}
	if existing, ok := r.byID[typ.ID]; ok && existing.Name != typ.Name {
		panic(fmt.Sprintf("node: id %d already registered to %q, cannot register %q", typ.ID, existing.Name, typ.Name))
	}

	r.byName[typ.Name] = typ
	r.byID[typ.ID] = typ
	if typ.GoType != nil {
		r.byGoType[typ.GoType] = typ
	}
}

// Unregister removes a type, primarily useful for test isolation.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	typ, ok := r.byName[name]
	if !ok {
		return
	}
	delete(r.byName, name)
	delete(r.byID, typ.ID)
	if typ.GoType != nil {
		delete(r.byGoType, typ.GoType)
	}
}

// ByName looks up a type by its registered name.
func (r *Registry) ByName(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// ByID looks up a type by its registered integer id.
func (r *Registry) ByID(id uint32) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	return t, ok
}

// ByGoType looks up a type by the Go type its instances were registered
// with.
func (r *Registry) ByGoType(t reflect.Type) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	typ, ok := r.byGoType[t]
	return typ, ok
}

// Names returns every registered type name, sorted for deterministic
// diagnostics (recording.Backends()'s sorted-names convention).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered types.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// New instantiates a new Instance of the named type. Returns an error
// (not a panic) since an unknown type name routinely comes from
// user-facing graph-building code.
func (r *Registry) New(typeName, instanceName string) (*Instance, error) {
	typ, ok := r.ByName(typeName)
	if !ok {
		return nil, fmt.Errorf("node: unknown type %q (forgotten registration?)", typeName)
	}
	inst := typ.NewInstance(instanceName)
	inst.Type = typ
	return inst, nil
}
