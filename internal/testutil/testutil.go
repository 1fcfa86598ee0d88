// Package testutil contains helper handlers used across tests to reduce
// boilerplate when constructing engines with scripted per-step outputs.
// These helpers are intentionally minimal and not intended for production
// usage.
package testutil

import (
	"sync/atomic"

	"github.com/linshokaku/pytorch-pfn-extras/engine"
	"github.com/linshokaku/pytorch-pfn-extras/tensor"
)

// ScriptedHandler emits a pre-scripted sequence of outputs, one entry per
// step, for both training and evaluation. The step counter advances
// across epochs; running past the script is an error.
type ScriptedHandler struct {
	engine.BaseHandler

	outputs []engine.Outputs
	step    int

	// Steps counts completed step executions.
	Steps int
}

// NewScriptedHandler creates a handler producing the given outputs in order.
func NewScriptedHandler(outputs ...engine.Outputs) *ScriptedHandler {
	return &ScriptedHandler{outputs: outputs}
}

// ConstantOutputs builds a script of n identical single-key outputs.
func ConstantOutputs(n int, key string, value float64) []engine.Outputs {
	outs := make([]engine.Outputs, n)
	for i := range outs {
		outs[i] = engine.Outputs{key: tensor.Scalar(value)}
	}
	return outs
}

func (h *ScriptedHandler) next() (engine.Outputs, error) {
	if h.step >= len(h.outputs) {
		return nil, engine.ErrNoStep
	}
	out := h.outputs[h.step]
	h.step++
	h.Steps++
	return out, nil
}

// TrainStep implements engine.Handler.
func (h *ScriptedHandler) TrainStep(*engine.Trainer, int, engine.Batch) (engine.Outputs, error) {
	return h.next()
}

// EvalStep implements engine.Handler.
func (h *ScriptedHandler) EvalStep(*engine.Evaluator, int, engine.Batch) (engine.Outputs, error) {
	return h.next()
}

// Loader returns a slice loader with n empty batches.
func Loader(n int) engine.SliceLoader {
	l := make(engine.SliceLoader, n)
	for i := range l {
		l[i] = engine.Batch{}
	}
	return l
}

// CallCounter counts invocations of a wrapped function via Add.
type CallCounter struct {
	n atomic.Int32
}

// Add records one invocation.
func (c *CallCounter) Add() { c.n.Add(1) }

// Count returns the number of recorded invocations.
func (c *CallCounter) Count() int { return int(c.n.Load()) }
