// Package comparer drives two or more independently executing training or
// evaluation engines in lockstep and asserts that the outputs they produce
// at synchronized comparison points are numerically equivalent. It is the
// tool for validating that a migrated or alternative backend reproduces a
// reference pipeline step for step.
//
// Each registered engine keeps running its own loop untouched; the
// comparer intercepts the engine's handler, captures the selected outputs
// and parameters after every triggering step, and holds all engines at a
// shared barrier until every one of them has reported. The first
// registered engine is the reference; all others are compared against it
// with a pluggable, tolerance-based comparison function. Any mismatch,
// engine failure or trigger disagreement breaks the barrier so no peer
// hangs, and surfaces from Compare.
//
// Typical usage:
//
//	cmp := comparer.New(func(o *comparer.Options) {
//	    o.Trigger = trigger.EveryIteration()
//	})
//	_ = cmp.AddEngine("cpu", cpuTrainer, cpuLoader)
//	_ = cmp.AddEngine("gpu", gpuTrainer, gpuLoader)
//	if err := cmp.Compare(ctx); err != nil {
//	    // backends diverged (the error names the key and both engines)
//	}
package comparer
