package node

import "testing"

func factoryType(id uint32, name string) *Type {
	return &Type{
		ID:   id,
		Name: name,
		NewInstance: func(instanceName string) *Instance {
			return New(instanceName, nil, &recordingBehavior{})
		},
	}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	typ := factoryType(1, "demo.Node")
	r.Register(typ)

	if got, ok := r.ByName("demo.Node"); !ok || got != typ {
		t.Fatalf("ByName: got %v, %v", got, ok)
	}
	if got, ok := r.ByID(1); !ok || got != typ {
		t.Fatalf("ByID: got %v, %v", got, ok)
	}
	if r.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", r.Count())
	}
}

func TestRegistryRegisterIsIdempotentForSameType(t *testing.T) {
	r := NewRegistry()
	typ := factoryType(1, "demo.Node")
	r.Register(typ)
	r.Register(typ) // must not panic
	if r.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", r.Count())
	}
}

func TestRegistryRegisterPanicsOnConflictingName(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate name with different type")
		}
	}()
	r := NewRegistry()
	r.Register(factoryType(1, "demo.Node"))
	r.Register(factoryType(2, "demo.Node"))
}

func TestRegistryRegisterPanicsOnNilFactory(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on nil factory")
		}
	}()
	r := NewRegistry()
	r.Register(&Type{ID: 1, Name: "demo.Node"})
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(factoryType(2, "zeta"))
	r.Register(factoryType(1, "alpha"))
	names := r.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("Names() = %v, want [alpha zeta]", names)
	}
}

func TestRegistryNewInstantiates(t *testing.T) {
	r := NewRegistry()
	r.Register(factoryType(1, "demo.Node"))
	inst, err := r.New("demo.Node", "inst1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if inst.Name != "inst1" || inst.Type.Name != "demo.Node" {
		t.Fatalf("unexpected instance: %+v", inst)
	}
}

func TestRegistryNewUnknownType(t *testing.T) {
	r := NewRegistry()
	if _, err := r.New("missing", "inst1"); err == nil {
		t.Fatal("expected error for unknown type name")
	}
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register(factoryType(1, "demo.Node"))
	r.Unregister("demo.Node")
	if r.Count() != 0 {
		t.Fatalf("Count() = %d, want 0 after Unregister", r.Count())
	}
	if _, ok := r.ByID(1); ok {
		t.Fatal("ByID should fail after Unregister")
	}
}
