// Package errs defines the structured error kinds raised by the simulator
// core, adapted from the teacher repo's HTTP-oriented internal/shared/errors
// package into the error taxonomy of spec.md §7.
package errs

import "fmt"

// Kind identifies one of the simulator's error categories.
type Kind string

const (
	// KindMalformedDataset is raised by the dataset loader when the input
	// JSON is missing keys, references a nonexistent server/VM, or violates
	// a load-time invariant (demand exceeds capacity, a VM hosted twice).
	KindMalformedDataset Kind = "malformed_dataset"

	// KindUnknownStrategy is raised before a simulation starts when the
	// requested maintenance strategy name isn't registered.
	KindUnknownStrategy Kind = "unknown_strategy"

	// KindInvariantViolated is raised when a core invariant is found broken
	// at runtime — e.g. migrating a VM to a server without enough capacity.
	// It is a programming error and is always fatal.
	KindInvariantViolated Kind = "invariant_violated"

	// KindNoProgress is an optional diagnostic: a maintenance step performed
	// zero patches and zero migrations while servers remained nonupdated.
	KindNoProgress Kind = "no_progress"
)

// Error is a structured simulator error carrying a kind, a message, and
// optional machine-readable details for logging or reporting.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Details)
}

// Is makes errors.Is(err, target) report true when target is an *Error of
// the same Kind, regardless of message or details. Any other target type
// never matches.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newf(kind Kind, details map[string]any, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Details: details}
}

// MalformedDataset reports a dataset-loading problem.
func MalformedDataset(details map[string]any, format string, args ...any) *Error {
	return newf(KindMalformedDataset, details, format, args...)
}

// UnknownStrategy reports a strategy name with no registered implementation.
func UnknownStrategy(name string) *Error {
	return newf(KindUnknownStrategy, map[string]any{"strategy": name}, "unknown maintenance strategy %q", name)
}

// InvariantViolated reports a broken core invariant, dumping the offending
// entity ids so the simulation can be debugged post-mortem.
func InvariantViolated(details map[string]any, format string, args ...any) *Error {
	return newf(KindInvariantViolated, details, format, args...)
}

// NoProgress reports a maintenance step that patched and migrated nothing.
func NoProgress(step int, consecutive int) *Error {
	return newf(KindNoProgress, map[string]any{"step": step, "consecutive_steps": consecutive},
		"no progress for %d consecutive maintenance step(s) (currently step %d)", consecutive, step)
}
