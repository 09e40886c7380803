package budget

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Sentinel errors, in the teacher's package-level-var style
// (backend/native/hal_pipeline_cache.go).
var (
	ErrDuplicateTaskID  = errors.New("budget: task id already registered")
	ErrUnknownTaskID    = errors.New("budget: unknown task id")
	ErrDuplicateFactory = errors.New("budget: factory type already registered")
)

// factoryRegistry is the package-level CustomFactory registry, mirroring
// the teacher's recording.Register pattern (string-keyed, panics never
// happen here since registration failures are user errors returned, not
// program-startup mistakes).
var (
	factoryMu sync.RWMutex
	factories = make(map[string]Factory)
)

// RegisterFactory adds a custom Profile constructor under typeName, the
// escape hatch beyond SimpleProfile/ResolutionProfile (spec.md §4.8).
func RegisterFactory(typeName string, factory Factory) error {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	if _, exists := factories[typeName]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateFactory, typeName)
	}
	factories[typeName] = factory
	return nil
}

// NewCustomProfile instantiates a profile previously registered under
// typeName via RegisterFactory.
func NewCustomProfile(typeName, taskID string, category Category, priority int) (Profile, error) {
	factoryMu.RLock()
	factory, ok := factories[typeName]
	factoryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("budget: unknown profile type %q (forgotten RegisterFactory?)", typeName)
	}
	return factory(taskID, category, priority), nil
}

// Registry is the central task-profile table keyed by task id, with a
// priority-ascending sorted cache for efficient lowest/highest selection
// (spec.md §4.8 "Registry"). Double-checked-locking style mirrors
// HALPipelineCache: an RWMutex guards the map, the sorted cache is
// invalidated lazily.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]Profile

	sortedCache []Profile
	cacheValid  bool
}

// NewRegistry creates an empty task profile registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]Profile)}
}

// RegisterTask adds p, keyed by p.TaskID(). Returns ErrDuplicateTaskID if
// a profile is already registered under that id.
func (r *Registry) RegisterTask(p Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[p.TaskID()]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTaskID, p.TaskID())
	}
	r.tasks[p.TaskID()] = p
	r.cacheValid = false
	return nil
}

// UnregisterTask removes a task profile.
func (r *Registry) UnregisterTask(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, taskID)
	r.cacheValid = false
}

// GetProfile looks up a task's profile by id.
func (r *Registry) GetProfile(taskID string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.tasks[taskID]
	return p, ok
}

// HasTask reports whether taskID is registered.
func (r *Registry) HasTask(taskID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tasks[taskID]
	return ok
}

// TaskCount returns the number of registered task profiles.
func (r *Registry) TaskCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// TaskIDs returns every registered task id, sorted for determinism.
func (r *Registry) TaskIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.tasks))
	for id := range r.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RecordMeasurement forwards actualNs to taskID's profile. Returns false
// if taskID is unknown.
func (r *Registry) RecordMeasurement(taskID string, actualNs int64) bool {
	r.mu.RLock()
	p, ok := r.tasks[taskID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	p.RecordMeasurement(actualNs)
	return true
}

// sortedByPriority returns the priority-ascending cache, rebuilding it if
// invalidated since the last call (double-checked locking, matching
// HALPipelineCache's RLock-fast-path/Lock-rebuild-slow-path shape).
func (r *Registry) sortedByPriority() []Profile {
	r.mu.RLock()
	if r.cacheValid {
		cached := r.sortedCache
		r.mu.RUnlock()
		return cached
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cacheValid {
		return r.sortedCache
	}
	sorted := make([]Profile, 0, len(r.tasks))
	for _, p := range r.tasks {
		sorted = append(sorted, p)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority() < sorted[j].Priority() })
	r.sortedCache = sorted
	r.cacheValid = true
	return sorted
}

// DecreaseLowestPriority walks the priority-ascending cache and
// decrements the work units of the first task whose WorkUnits() is above
// its minimum, returning its task id and true. Returns ("", false) if no
// task can be decreased (spec.md §4.8 "process_deferred_actions"; the ok
// return keeps the VIXEN original's "adjusted task id or none" signal
// instead of silently doing nothing).
func (r *Registry) DecreaseLowestPriority(step int) (taskID string, ok bool) {
	for _, p := range r.sortedByPriority() {
		_, min := rangeOf(p)
		if p.WorkUnits() > min {
			p.SetWorkUnits(p.WorkUnits() - step)
			return p.TaskID(), true
		}
	}
	return "", false
}

// IncreaseHighestPriority walks the priority-ascending cache in reverse
// and increments the work units of the first task whose WorkUnits() is
// below its maximum, returning its task id and true. Returns ("", false)
// if no task can be increased.
func (r *Registry) IncreaseHighestPriority(step int) (taskID string, ok bool) {
	sorted := r.sortedByPriority()
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		max, _ := rangeOf(p)
		if p.WorkUnits() < max {
			p.SetWorkUnits(p.WorkUnits() + step)
			return p.TaskID(), true
		}
	}
	return "", false
}

// rangeOf returns (max, min) — named this way at the call sites above for
// readability since DecreaseLowestPriority only needs min and
// IncreaseHighestPriority only needs max.
func rangeOf(p Profile) (max, min int) {
	min, max = p.Range()
	return max, min
}
