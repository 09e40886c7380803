// Package cleanup implements the render graph's cleanup stack (spec.md
// §4.9): per-node closures registered with their resource dependencies,
// run in reverse-dependency order so producers outlive consumers, plus a
// frame-delayed destruction queue for GPU objects that must outlive the
// frame that stopped using them.
package cleanup

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrDuplicateAction is returned by Push when name is already
	// registered.
	ErrDuplicateAction = errors.New("cleanup: action already registered")
	// ErrCleanupCycle is returned if the dependency graph among pushed
	// actions is cyclic, which would make a valid cleanup order
	// impossible.
	ErrCleanupCycle = errors.New("cleanup: dependency cycle among actions")
)

// Action is one node's cleanup closure plus the cleanup-names it depends
// on (computed from hooks.DependencyTracker.BuildCleanupDependencies:
// every resource the node consumed, mapped back to its producer's
// cleanup name).
type Action struct {
	Name string
	Deps []string
	Fn   func() error
}

// Stack holds every registered cleanup action and tracks which have
// already run, so repeated RunAll/RunPartial calls are idempotent.
type Stack struct {
	mu sync.Mutex

	actions map[string]*Action
	order   []string // push order, used for deterministic tie-breaking
	done    map[string]bool

	// dependents[x] is the set of action names that list x in their Deps
	// — i.e. the consumers of producer x.
	dependents map[string]map[string]bool
}

// NewStack creates an empty cleanup stack.
func NewStack() *Stack {
	return &Stack{
		actions:    make(map[string]*Action),
		done:       make(map[string]bool),
		dependents: make(map[string]map[string]bool),
	}
}

// Push registers a cleanup action. deps names actions that must be run
// (cleaned up) before this one's producers are reclaimed — concretely,
// this action depends on resources those actions produced.
func (s *Stack) Push(name string, deps []string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.actions[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateAction, name)
	}
	depsCopy := append([]string(nil), deps...)
	s.actions[name] = &Action{Name: name, Deps: depsCopy, Fn: fn}
	s.order = append(s.order, name)
	for _, d := range depsCopy {
		if s.dependents[d] == nil {
			s.dependents[d] = make(map[string]bool)
		}
		s.dependents[d][name] = true
	}
	return nil
}

// Has reports whether name is registered (regardless of whether it has
// already run).
func (s *Stack) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.actions[name]
	return ok
}

// IsCleanedUp reports whether name's action has already run.
func (s *Stack) IsCleanedUp(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done[name]
}

// RunAll runs every not-yet-cleaned action in reverse-dependency order
// (consumers before producers) and returns the first error encountered,
// if any; unlike node cleanup, a failing action does not stop the
// others — every action still runs once, and only the first error is
// reported (spec.md §4.9 "Cleanup errors never abort cleanup of other
// nodes... the first error is recorded and returned").
func (s *Stack) RunAll() error {
	s.mu.Lock()
	plan, err := s.planFullLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.execute(plan)
}

// RunPartial runs the cleanup actions named in seeds, then walks
// backward along the dependency chain, additionally cleaning any
// producer whose full set of consumers (across everything ever pushed,
// not just this call's seeds) has now been cleaned. If dryRun is true,
// nothing is executed; the candidate plan is returned instead.
func (s *Stack) RunPartial(seeds []string, dryRun bool) ([]string, error) {
	s.mu.Lock()
	plan := s.planPartialLocked(seeds)
	s.mu.Unlock()

	if dryRun {
		return plan, nil
	}
	if err := s.execute(plan); err != nil {
		return plan, err
	}
	return plan, nil
}

func (s *Stack) execute(plan []string) error {
	var firstErr error
	for _, name := range plan {
		s.mu.Lock()
		act, ok := s.actions[name]
		alreadyDone := s.done[name]
		s.mu.Unlock()
		if !ok || alreadyDone {
			continue
		}
		err := act.Fn()
		s.mu.Lock()
		s.done[name] = true
		s.mu.Unlock()
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("cleanup: action %q: %w", name, err)
		}
	}
	return firstErr
}

// planFullLocked computes a reverse-dependency order over every
// not-yet-cleaned action via Kahn's algorithm on the dependents graph
// (a producer becomes eligible once every consumer that depends on it is
// already in the plan). Callers must hold s.mu.
func (s *Stack) planFullLocked() ([]string, error) {
	remaining := make(map[string]int)
	for name := range s.actions {
		if s.done[name] {
			continue
		}
		remaining[name] = 0
	}
	for name := range remaining {
		for consumer := range s.dependents[name] {
			if _, ok := remaining[consumer]; ok {
				remaining[name]++
			}
		}
	}

	var plan []string
	added := make(map[string]bool)
	for len(plan) < len(remaining) {
		progressed := false
		for _, name := range s.order {
			if added[name] {
				continue
			}
			if count, ok := remaining[name]; !ok || count != 0 {
				continue
			}
			plan = append(plan, name)
			added[name] = true
			progressed = true
			for _, dep := range s.actions[name].Deps {
				if _, ok := remaining[dep]; ok {
					remaining[dep]--
				}
			}
		}
		if !progressed {
			return nil, ErrCleanupCycle
		}
	}
	return plan, nil
}

// planPartialLocked seeds the plan with seeds directly (explicit
// requests always run), then propagates backward: a dependency becomes
// eligible once none of its remaining consumers (done, already in plan,
// or yet to come) are left outstanding. Callers must hold s.mu.
func (s *Stack) planPartialLocked(seeds []string) []string {
	inPlan := make(map[string]bool)
	var plan []string
	queue := append([]string(nil), seeds...)

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if s.done[name] || inPlan[name] {
			continue
		}
		act, ok := s.actions[name]
		if !ok {
			continue
		}
		plan = append(plan, name)
		inPlan[name] = true

		for _, dep := range act.Deps {
			if s.done[dep] || inPlan[dep] {
				continue
			}
			if s.remainingConsumersLocked(dep, inPlan) == 0 {
				queue = append(queue, dep)
			}
		}
	}
	return plan
}

// remainingConsumersLocked counts dep's consumers that are neither
// already cleaned up nor already committed to the current plan.
func (s *Stack) remainingConsumersLocked(dep string, inPlan map[string]bool) int {
	count := 0
	for consumer := range s.dependents[dep] {
		if s.done[consumer] || inPlan[consumer] {
			continue
		}
		count++
	}
	return count
}
