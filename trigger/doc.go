// Package trigger defines the comparison-point predicates evaluated
// against an engine's progress. A Trigger decides, given the current
// iteration/epoch position, whether outputs should be captured and
// compared across backends at this step.
//
// Two implementations are provided: IntervalTrigger (every N epochs or
// iterations, the default being once per epoch) and TimeTrigger (every
// period of consumed wall-clock time, with serializable state for
// resumption). Custom predicates plug in via the Func adapter.
package trigger
