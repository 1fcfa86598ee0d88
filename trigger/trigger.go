package trigger

import (
	"fmt"
	"math"
	"time"
)

// Progress is the view of a running engine's position that triggers are
// evaluated against. Engines expose it through their progress manager;
// the comparator evaluates triggers against a view shifted one iteration
// ahead, so the step just completed is already counted.
type Progress interface {
	// Iteration is the number of completed steps.
	Iteration() int
	// Epoch is the number of completed passes over the dataset.
	Epoch() int
	// EpochDetail is the epoch position including the fractional part,
	// e.g. 1.5 halfway through the second epoch.
	EpochDetail() float64
	// ElapsedTime is the wall-clock time spent in the run so far.
	ElapsedTime() time.Duration
}

// Trigger decides whether a given progress position is a comparison point.
type Trigger interface {
	Fire(p Progress) bool
}

// Func adapts a plain predicate to the Trigger interface.
type Func func(p Progress) bool

// Fire implements Trigger.
func (f Func) Fire(p Progress) bool { return f(p) }

// Unit is the axis an IntervalTrigger counts along.
type Unit string

const (
	// UnitEpoch fires on epoch boundaries.
	UnitEpoch Unit = "epoch"
	// UnitIteration fires on step counts.
	UnitIteration Unit = "iteration"
)

// ParseUnit converts a configuration string into a Unit.
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case UnitEpoch, UnitIteration:
		return Unit(s), nil
	default:
		return "", fmt.Errorf("trigger: unknown unit %q (want %q or %q)", s, UnitEpoch, UnitIteration)
	}
}

// IntervalTrigger fires once every Period epochs or iterations. It is
// stateless: the decision depends only on the observed progress, so
// concurrent evaluation from multiple engines is safe.
type IntervalTrigger struct {
	period int
	unit   Unit
}

// NewInterval creates a trigger firing every period units.
func NewInterval(period int, unit Unit) (*IntervalTrigger, error) {
	if period < 1 {
		return nil, fmt.Errorf("trigger: period must be positive, got %d", period)
	}
	if _, err := ParseUnit(string(unit)); err != nil {
		return nil, err
	}

	return &IntervalTrigger{period: period, unit: unit}, nil
}

// Default returns the standard comparison cadence: once per epoch.
func Default() Trigger {
	t, _ := NewInterval(1, UnitEpoch)
	return t
}

// EveryIteration returns a trigger that fires on every completed step.
func EveryIteration() Trigger {
	t, _ := NewInterval(1, UnitIteration)
	return t
}

// Period returns the trigger's interval length.
func (t *IntervalTrigger) Period() int { return t.period }

// Unit returns the axis the trigger counts along.
func (t *IntervalTrigger) Unit() Unit { return t.unit }

// Fire implements Trigger.
func (t *IntervalTrigger) Fire(p Progress) bool {
	switch t.unit {
	case UnitIteration:
		iter := p.Iteration()
		return iter > 0 && iter%t.period == 0
	default:
		// Epoch boundaries: the detail is integral exactly when an epoch
		// has just completed.
		detail := p.EpochDetail()
		if detail <= 0 || detail != math.Trunc(detail) {
			return false
		}
		return int(detail)%t.period == 0
	}
}
