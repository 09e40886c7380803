package node

import (
	"errors"
	"testing"

	"github.com/vixengraph/rendergraph/resource"
)

type fakeProvider struct{}

func (fakeProvider) CreateResource(name string, kind resource.Kind, desc resource.Descriptor, lifetime resource.Lifetime) *resource.Resource {
	return &resource.Resource{Name: name, Kind: kind, Descriptor: desc, Lifetime: lifetime}
}
func (fakeProvider) GetResource(name string) (*resource.Resource, bool) { return nil, false }
func (fakeProvider) MarkInputUsed(owner Handle, resourceName string)    {}
func (fakeProvider) SubmitDeferred(name string, destroy func() error)    {}

type recordingBehavior struct {
	BaseBehavior
	calls     []string
	failPhase string
}

func (b *recordingBehavior) SetupImpl(*SetupContext) error {
	b.calls = append(b.calls, "setup")
	if b.failPhase == "setup" {
		return errors.New("boom")
	}
	return nil
}

func (b *recordingBehavior) CompileImpl(*CompileContext) error {
	b.calls = append(b.calls, "compile")
	if b.failPhase == "compile" {
		return errors.New("boom")
	}
	return nil
}

func (b *recordingBehavior) ExecuteImpl(*ExecuteContext) error {
	b.calls = append(b.calls, "execute")
	return nil
}

func (b *recordingBehavior) CleanupImpl(*CleanupContext) error {
	b.calls = append(b.calls, "cleanup")
	return nil
}

func testType() *Type {
	return &Type{ID: 1, Name: "test.Node"}
}

func TestLifecycleHappyPath(t *testing.T) {
	beh := &recordingBehavior{}
	n := New("n1", testType(), beh)

	if n.State != StateCreated {
		t.Fatalf("new instance state = %s, want Created", n.State)
	}
	if err := n.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if n.State != StateReady {
		t.Fatalf("state after Setup = %s, want Ready", n.State)
	}
	if err := n.Compile(fakeProvider{}); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if n.State != StateCompiled {
		t.Fatalf("state after Compile = %s, want Compiled", n.State)
	}
	if err := n.ExecuteTask(&ExecuteContext{Instance: n}); err != nil {
		t.Fatalf("ExecuteTask: %v", err)
	}
	if n.State != StateExecuting {
		t.Fatalf("state after ExecuteTask = %s, want Executing", n.State)
	}
	n.FinishExecute()
	if n.State != StateCompiled {
		t.Fatalf("state after FinishExecute = %s, want Compiled", n.State)
	}
	if err := n.Cleanup(fakeProvider{}); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if n.State != StateCreated {
		t.Fatalf("state after Cleanup = %s, want Created", n.State)
	}

	want := []string{"setup", "compile", "execute", "cleanup"}
	if len(beh.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", beh.calls, want)
	}
	for i := range want {
		if beh.calls[i] != want[i] {
			t.Fatalf("calls[%d] = %q, want %q", i, beh.calls[i], want[i])
		}
	}
}

func TestInvalidTransition(t *testing.T) {
	n := New("n1", testType(), &recordingBehavior{})
	if err := n.Compile(fakeProvider{}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Compile before Setup: err = %v, want ErrInvalidTransition", err)
	}
}

func TestSetupFailureSetsErrorState(t *testing.T) {
	beh := &recordingBehavior{failPhase: "setup"}
	n := New("n1", testType(), beh)
	if err := n.Setup(); err == nil {
		t.Fatal("expected Setup error")
	}
	if n.State != StateError {
		t.Fatalf("state = %s, want Error", n.State)
	}
}

func TestMissingRequiredParam(t *testing.T) {
	typ := testType()
	typ.Params = []ParamDef{{Name: "width", Kind: ParamInt, Required: true}}
	n := New("n1", typ, &recordingBehavior{})
	err := n.Setup()
	if !errors.Is(err, ErrMissingRequiredParam) {
		t.Fatalf("err = %v, want ErrMissingRequiredParam", err)
	}
	if n.State != StateError {
		t.Fatalf("state = %s, want Error", n.State)
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	beh := &recordingBehavior{}
	n := New("n1", testType(), beh)
	_ = n.Setup()
	_ = n.Compile(fakeProvider{})

	if err := n.Cleanup(fakeProvider{}); err != nil {
		t.Fatalf("first Cleanup: %v", err)
	}
	callsAfterFirst := len(beh.calls)
	if err := n.Cleanup(fakeProvider{}); err != nil {
		t.Fatalf("second Cleanup: %v", err)
	}
	if len(beh.calls) != callsAfterFirst {
		t.Fatalf("second Cleanup invoked CleanupImpl again: calls = %v", beh.calls)
	}
	if !n.CleanedUp() {
		t.Fatal("CleanedUp() = false after Cleanup")
	}
}

func TestCleanupErrorStillMarksCleanedUp(t *testing.T) {
	n := New("n1", testType(), &failingCleanupBehavior{})
	err := n.Cleanup(fakeProvider{})
	if err == nil {
		t.Fatal("expected error from CleanupImpl")
	}
	if !n.CleanedUp() {
		t.Fatal("CleanedUp() = false even though CleanupImpl ran and failed")
	}
	// Second call must still be a no-op, not re-run CleanupImpl.
	if err := n.Cleanup(fakeProvider{}); err != nil {
		t.Fatalf("second Cleanup should be a no-op, got %v", err)
	}
}

type failingCleanupBehavior struct{ BaseBehavior }

func (failingCleanupBehavior) CleanupImpl(*CleanupContext) error {
	return errors.New("cleanup boom")
}

func TestHookOrdering(t *testing.T) {
	var order []string
	n := New("n1", testType(), &recordingBehavior{})
	n.Hooks.PreSetup = append(n.Hooks.PreSetup, func(*Instance) error {
		order = append(order, "pre")
		return nil
	})
	n.Hooks.PostSetup = append(n.Hooks.PostSetup, func(*Instance) error {
		order = append(order, "post")
		return nil
	})
	if err := n.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if len(order) != 2 || order[0] != "pre" || order[1] != "post" {
		t.Fatalf("hook order = %v, want [pre post]", order)
	}
}

func TestAddDependencyDeduplicates(t *testing.T) {
	n := New("n1", testType(), &recordingBehavior{})
	n.AddDependency(Handle(3))
	n.AddDependency(Handle(3))
	n.AddDependency(Handle(5))
	if len(n.Dependencies()) != 2 {
		t.Fatalf("Dependencies() = %v, want 2 unique entries", n.Dependencies())
	}
}

func TestShouldExecuteThisFrame(t *testing.T) {
	n := New("n1", testType(), &recordingBehavior{})
	if !n.ShouldExecuteThisFrame(func(string) bool { return false }) {
		t.Fatal("node with no loop references should always execute")
	}
	n.AddLoopReference(LoopReference{LoopName: "main"})
	if n.ShouldExecuteThisFrame(func(string) bool { return false }) {
		t.Fatal("node with only inactive loop references should not execute")
	}
	if !n.ShouldExecuteThisFrame(func(name string) bool { return name == "main" }) {
		t.Fatal("node should execute once its loop is active")
	}
}

func TestMarkNeedsRecompileDefersDuringExecute(t *testing.T) {
	n := New("n1", testType(), &recordingBehavior{})
	n.State = StateExecuting
	n.MarkNeedsRecompile()
	if n.DeferredRecompile != true || n.NeedsRecompile {
		t.Fatalf("expected DeferredRecompile only, got NeedsRecompile=%v DeferredRecompile=%v", n.NeedsRecompile, n.DeferredRecompile)
	}
}

func TestResetForRecompile(t *testing.T) {
	n := New("n1", testType(), &recordingBehavior{})
	_ = n.Setup()
	_ = n.Compile(fakeProvider{})
	gen := n.Generation
	n.ResetForRecompile()
	if n.State != StateReady {
		t.Fatalf("state after ResetForRecompile = %s, want Ready", n.State)
	}
	if n.Generation != gen+1 {
		t.Fatalf("Generation = %d, want %d", n.Generation, gen+1)
	}
}
