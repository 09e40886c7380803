package hooks

import "testing"

func TestBuildCleanupDependencies(t *testing.T) {
	tr := NewDependencyTracker()
	tr.RegisterProducer("texture.color", "producerNode")
	tr.MarkUsed("consumerNode", "texture.color")

	deps := tr.BuildCleanupDependencies("consumerNode")
	if len(deps) != 1 || deps[0] != "producerNode" {
		t.Fatalf("deps = %v, want [producerNode]", deps)
	}
}

func TestBuildCleanupDependenciesSkipsUnknownProducer(t *testing.T) {
	tr := NewDependencyTracker()
	tr.MarkUsed("consumerNode", "external.resource")

	deps := tr.BuildCleanupDependencies("consumerNode")
	if len(deps) != 0 {
		t.Fatalf("deps = %v, want none for externally-imported resource", deps)
	}
}

func TestBuildCleanupDependenciesDedups(t *testing.T) {
	tr := NewDependencyTracker()
	tr.RegisterProducer("a", "producer")
	tr.RegisterProducer("b", "producer")
	tr.MarkUsed("consumer", "a")
	tr.MarkUsed("consumer", "b")

	deps := tr.BuildCleanupDependencies("consumer")
	if len(deps) != 1 || deps[0] != "producer" {
		t.Fatalf("deps = %v, want single deduplicated [producer]", deps)
	}
}

func TestMarkUsedDeduplicatesResources(t *testing.T) {
	tr := NewDependencyTracker()
	tr.MarkUsed("consumer", "a")
	tr.MarkUsed("consumer", "a")
	if got := tr.ResourcesConsumedBy("consumer"); len(got) != 1 {
		t.Fatalf("ResourcesConsumedBy = %v, want 1 entry", got)
	}
}

func TestSelfDependencyExcluded(t *testing.T) {
	tr := NewDependencyTracker()
	tr.RegisterProducer("a", "node1")
	tr.MarkUsed("node1", "a")
	if deps := tr.BuildCleanupDependencies("node1"); len(deps) != 0 {
		t.Fatalf("deps = %v, want none (self-dependency excluded)", deps)
	}
}
