package node

import "errors"

// Sentinel errors for the node lifecycle, in the teacher's
// package-level-var style (backend/native/errors.go, text/errors.go).
var (
	// ErrInvalidTransition is raised when a phase method is called from a
	// State that does not permit it. This is a RuntimeInvariantBroken
	// condition (spec.md §7): a programming error in the orchestrator or
	// caller, not a user data error, so it is returned rather than
	// panicked to let the facade decide how to surface it.
	ErrInvalidTransition = errors.New("node: invalid lifecycle state transition")

	// ErrMissingRequiredParam is raised at Setup/Compile when a required
	// parameter was never set.
	ErrMissingRequiredParam = errors.New("node: required parameter not set")

	// ErrOutputNotWritten names the case of a non-nullable output slot
	// whose resource was never created during Compile. No code in this
	// module returns it; Compile does not perform that check.
	ErrOutputNotWritten = errors.New("node: non-nullable output not written during Compile")

	// ErrAlreadyCleanedUp is never returned by Cleanup (Cleanup is
	// idempotent, spec.md §4.2) but is available for callers that want to
	// distinguish a repeat call for logging.
	ErrAlreadyCleanedUp = errors.New("node: already cleaned up")
)
