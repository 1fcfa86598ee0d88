package comparer

import "errors"

var (
	// ErrNoEngines is returned by Compare when nothing was registered.
	ErrNoEngines = errors.New("comparer: no engines registered")

	// ErrEngineType is returned when a registered engine is neither a
	// Trainer nor an Evaluator.
	ErrEngineType = errors.New("comparer: unsupported engine type")

	// ErrEngineKindMismatch is returned when trainers and evaluators are
	// mixed within one Comparer instance.
	ErrEngineKindMismatch = errors.New("comparer: all engines must be of the same kind")

	// ErrDuplicateEngine is returned when an engine name is registered twice.
	ErrDuplicateEngine = errors.New("comparer: engine already registered")

	// ErrNoParamMatch is returned when a parameter-key pattern matches no
	// key of the reference model's state dict.
	ErrNoParamMatch = errors.New("comparer: parameter pattern matched no state dict key")

	// ErrTriggerMismatch is returned when engines disagree on when or how
	// often to compare, detected through leftover target sets at
	// finalization or reports arriving after a peer already finished.
	ErrTriggerMismatch = errors.New("comparer: engines have different triggers")

	// ErrNotImplemented is returned by the dump-based entry points, which
	// are deliberately unsupported.
	ErrNotImplemented = errors.New("comparer: not implemented")
)
