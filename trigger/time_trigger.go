package trigger

import (
	"sync"
	"time"
)

// TimeTrigger fires each time another Period of wall-clock training time
// has been consumed. Unlike IntervalTrigger it is stateful: it remembers
// the next firing deadline, so a single instance must not be shared
// between independent runs without restoring its state.
type TimeTrigger struct {
	mu     sync.Mutex
	period time.Duration
	next   time.Duration
}

// NewTimeTrigger creates a trigger firing every period of elapsed time.
func NewTimeTrigger(period time.Duration) *TimeTrigger {
	return &TimeTrigger{period: period, next: period}
}

// Fire implements Trigger. It returns true at most once per consumed
// period, advancing the internal deadline on each firing.
func (t *TimeTrigger) Fire(p Progress) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p.ElapsedTime() >= t.next {
		t.next += t.period
		return true
	}

	return false
}

// TimeTriggerState is the serializable snapshot of a TimeTrigger, used to
// resume a run without re-firing already consumed periods.
type TimeTriggerState struct {
	NextTime time.Duration `yaml:"next_time" json:"next_time"`
}

// State snapshots the trigger for serialization.
func (t *TimeTrigger) State() TimeTriggerState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return TimeTriggerState{NextTime: t.next}
}

// LoadState restores a snapshot produced by State.
func (t *TimeTrigger) LoadState(s TimeTriggerState) {
	t.mu.Lock()
	t.next = s.NextTime
	t.mu.Unlock()
}
