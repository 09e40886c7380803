package hooks

// DependencyTracker maps every resource a node consumed during Compile
// to the name of the node that produced it (spec.md §4.2 step 6: "Marks
// 'input used in compile' per slot/array-index to drive dependency
// tracking"). The cleanup package's Stack uses this to compute, for each
// node, the set of cleanup-names it must wait behind.
type DependencyTracker struct {
	// producerOf maps a resource name to the cleanup-name of the node
	// that produced it.
	producerOf map[string]string
	// consumedBy maps a node's cleanup-name to the resource names it read
	// during Compile.
	consumedBy map[string][]string
}

// NewDependencyTracker creates an empty tracker.
func NewDependencyTracker() *DependencyTracker {
	return &DependencyTracker{
		producerOf: make(map[string]string),
		consumedBy: make(map[string][]string),
	}
}

// RegisterProducer records that resourceName was produced by
// producerCleanupName (the node's cleanup-stack identity, usually its
// instance name).
func (t *DependencyTracker) RegisterProducer(resourceName, producerCleanupName string) {
	t.producerOf[resourceName] = producerCleanupName
}

// MarkUsed records that consumerCleanupName read resourceName during its
// Compile phase.
func (t *DependencyTracker) MarkUsed(consumerCleanupName, resourceName string) {
	for _, existing := range t.consumedBy[consumerCleanupName] {
		if existing == resourceName {
			return
		}
	}
	t.consumedBy[consumerCleanupName] = append(t.consumedBy[consumerCleanupName], resourceName)
}

// BuildCleanupDependencies returns the set of producer cleanup-names that
// consumerCleanupName depends on: every resource it consumed, mapped back
// to its producer (spec.md §4.9 "ResourceDependencyTracker::
// build_cleanup_dependencies"). Resources with no known producer
// (externally imported) are silently skipped.
func (t *DependencyTracker) BuildCleanupDependencies(consumerCleanupName string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, resourceName := range t.consumedBy[consumerCleanupName] {
		producer, ok := t.producerOf[resourceName]
		if !ok || producer == consumerCleanupName {
			continue
		}
		if !seen[producer] {
			seen[producer] = true
			out = append(out, producer)
		}
	}
	return out
}

// ResourcesConsumedBy returns every resource name consumerCleanupName
// marked used, for diagnostics.
func (t *DependencyTracker) ResourcesConsumedBy(consumerCleanupName string) []string {
	out := make([]string, len(t.consumedBy[consumerCleanupName]))
	copy(out, t.consumedBy[consumerCleanupName])
	return out
}

// ProducerOf returns the cleanup-name of the node that produced
// resourceName, if known.
func (t *DependencyTracker) ProducerOf(resourceName string) (string, bool) {
	p, ok := t.producerOf[resourceName]
	return p, ok
}
