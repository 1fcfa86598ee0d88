package engine

import (
	"time"

	"github.com/linshokaku/pytorch-pfn-extras/trigger"
)

// Manager tracks an engine's position in its run: completed iterations,
// derived epoch counts and elapsed wall-clock time. It implements
// trigger.Progress so comparison-point predicates can be evaluated
// against it.
//
// A Manager is owned by the goroutine driving its engine; it is not safe
// for concurrent mutation.
type Manager struct {
	epochLength int
	iteration   int
	start       time.Time
	started     bool
}

// NewManager creates a manager for epochs of the given length (batches per
// epoch).
func NewManager(epochLength int) *Manager {
	if epochLength < 1 {
		epochLength = 1
	}
	return &Manager{epochLength: epochLength}
}

// Start marks the beginning of the run for elapsed-time accounting.
func (m *Manager) Start() {
	if !m.started {
		m.start = time.Now()
		m.started = true
	}
}

// Advance records one completed iteration.
func (m *Manager) Advance() { m.iteration++ }

// EpochLength returns the number of iterations per epoch.
func (m *Manager) EpochLength() int { return m.epochLength }

// Iteration implements trigger.Progress.
func (m *Manager) Iteration() int { return m.iteration }

// Epoch implements trigger.Progress.
func (m *Manager) Epoch() int { return m.iteration / m.epochLength }

// EpochDetail implements trigger.Progress.
func (m *Manager) EpochDetail() float64 {
	return float64(m.iteration) / float64(m.epochLength)
}

// ElapsedTime implements trigger.Progress.
func (m *Manager) ElapsedTime() time.Duration {
	if !m.started {
		return 0
	}
	return time.Since(m.start)
}

// Ahead returns a progress view shifted n iterations past the manager's
// current position, with epoch values derived from the shifted count.
// The comparer evaluates triggers against a one-ahead view so the step
// that just finished is already counted.
func (m *Manager) Ahead(n int) trigger.Progress {
	return aheadView{m: m, offset: n}
}

type aheadView struct {
	m      *Manager
	offset int
}

func (v aheadView) Iteration() int { return v.m.iteration + v.offset }

func (v aheadView) Epoch() int { return (v.m.iteration + v.offset) / v.m.epochLength }

func (v aheadView) EpochDetail() float64 {
	return float64(v.m.iteration+v.offset) / float64(v.m.epochLength)
}

func (v aheadView) ElapsedTime() time.Duration { return v.m.ElapsedTime() }
