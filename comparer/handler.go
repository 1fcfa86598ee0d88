package comparer

import (
	"github.com/linshokaku/pytorch-pfn-extras/engine"
)

// captureFn is the comparer's callback invoked after every completed step
// of an intercepted engine.
type captureFn func(h *comparableHandler, models map[string]engine.Model, batchIdx int, outputs engine.Outputs) error

// comparableHandler transparently proxies an engine's handler. Every
// lifecycle hook delegates to the wrapped handler unchanged; the two
// post-step hooks additionally count the wrapper's own iterations and
// hand the step outputs to the comparer. Installed by AddEngine via the
// engine's handler slot, so engine internals stay untouched.
type comparableHandler struct {
	engine.Handler

	name      string
	iteration int
	capture   captureFn
}

func newComparableHandler(inner engine.Handler, name string, capture captureFn) *comparableHandler {
	return &comparableHandler{Handler: inner, name: name, capture: capture}
}

// TrainPostStep delegates to the wrapped handler, then reports the step's
// outputs for comparison. Errors from the wrapped handler propagate
// without reporting.
func (h *comparableHandler) TrainPostStep(trainer *engine.Trainer, batchIdx int, batch engine.Batch, outputs engine.Outputs) error {
	if err := h.Handler.TrainPostStep(trainer, batchIdx, batch, outputs); err != nil {
		return err
	}

	h.iteration++

	return h.capture(h, trainer.Models(), batchIdx, outputs)
}

// EvalPostStep delegates to the wrapped handler, then reports the step's
// outputs for comparison.
func (h *comparableHandler) EvalPostStep(evaluator *engine.Evaluator, batchIdx int, batch engine.Batch, outputs engine.Outputs) error {
	if err := h.Handler.EvalPostStep(evaluator, batchIdx, batch, outputs); err != nil {
		return err
	}

	h.iteration++

	return h.capture(h, evaluator.Models(), batchIdx, outputs)
}
