package engine

import (
	"errors"

	"github.com/linshokaku/pytorch-pfn-extras/tensor"
)

// Batch is a named collection of input tensors for one step.
type Batch map[string]*tensor.Tensor

// Outputs is the named collection of tensors produced by one step.
type Outputs map[string]*tensor.Tensor

// ErrNoStep is returned by BaseHandler's step hooks; embedders must
// override TrainStep/EvalStep with real step logic.
var ErrNoStep = errors.New("engine: handler defines no step implementation")

// Handler defines the per-step behavior of an engine. Engines call the
// hooks in a fixed order; every hook is also the interception surface the
// comparison machinery proxies, so implementations must not assume they
// are invoked directly by the engine that owns them.
type Handler interface {
	// ConvertBatch transforms a raw loader batch before the step runs,
	// e.g. moving tensors to the backend's device.
	ConvertBatch(batch Batch) Batch

	// TrainSetup runs once before the first epoch.
	TrainSetup(trainer *Trainer, loader Loader) error
	// TrainEpochBegin runs before each training epoch.
	TrainEpochBegin(trainer *Trainer, loader Loader) error
	// TrainEpochEnd runs after each training epoch.
	TrainEpochEnd(trainer *Trainer) error
	// TrainValidationBegin runs before an in-training validation pass.
	TrainValidationBegin(evaluator *Evaluator) error
	// TrainValidationEnd runs after an in-training validation pass.
	TrainValidationEnd(trainer *Trainer, evaluator *Evaluator) error
	// TrainStep executes one optimization step and returns its outputs.
	TrainStep(trainer *Trainer, batchIdx int, batch Batch) (Outputs, error)
	// TrainPostStep runs after each completed training step.
	TrainPostStep(trainer *Trainer, batchIdx int, batch Batch, outputs Outputs) error

	// EvalLoopBegin runs before an evaluation loop.
	EvalLoopBegin(evaluator *Evaluator) error
	// EvalStep executes one evaluation step and returns its outputs.
	EvalStep(evaluator *Evaluator, batchIdx int, batch Batch) (Outputs, error)
	// EvalLoopEnd runs after an evaluation loop.
	EvalLoopEnd(evaluator *Evaluator) error
	// EvalPostStep runs after each completed evaluation step.
	EvalPostStep(evaluator *Evaluator, batchIdx int, batch Batch, outputs Outputs) error
}

// BaseHandler provides pass-through defaults for every lifecycle hook.
// Embed it and override the hooks you need; the step hooks return ErrNoStep
// until overridden.
type BaseHandler struct{}

// ConvertBatch returns the batch unchanged.
func (BaseHandler) ConvertBatch(batch Batch) Batch { return batch }

// TrainSetup is a no-op.
func (BaseHandler) TrainSetup(*Trainer, Loader) error { return nil }

// TrainEpochBegin is a no-op.
func (BaseHandler) TrainEpochBegin(*Trainer, Loader) error { return nil }

// TrainEpochEnd is a no-op.
func (BaseHandler) TrainEpochEnd(*Trainer) error { return nil }

// TrainValidationBegin is a no-op.
func (BaseHandler) TrainValidationBegin(*Evaluator) error { return nil }

// TrainValidationEnd is a no-op.
func (BaseHandler) TrainValidationEnd(*Trainer, *Evaluator) error { return nil }

// TrainStep fails with ErrNoStep; embedders must override it.
func (BaseHandler) TrainStep(*Trainer, int, Batch) (Outputs, error) { return nil, ErrNoStep }

// TrainPostStep is a no-op.
func (BaseHandler) TrainPostStep(*Trainer, int, Batch, Outputs) error { return nil }

// EvalLoopBegin is a no-op.
func (BaseHandler) EvalLoopBegin(*Evaluator) error { return nil }

// EvalStep fails with ErrNoStep; embedders must override it.
func (BaseHandler) EvalStep(*Evaluator, int, Batch) (Outputs, error) { return nil, ErrNoStep }

// EvalLoopEnd is a no-op.
func (BaseHandler) EvalLoopEnd(*Evaluator) error { return nil }

// EvalPostStep is a no-op.
func (BaseHandler) EvalPostStep(*Evaluator, int, Batch, Outputs) error { return nil }
