package engine

import (
	"context"
	"fmt"

	"github.com/linshokaku/pytorch-pfn-extras/logging"
)

// EvaluatorOptions holds configuration overrides passed to NewEvaluator.
type EvaluatorOptions struct {
	// Logger receives progress logs. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Evaluator drives a single evaluation pass: for each batch it converts
// the batch, executes the handler's eval step, and fires the post-step
// hook. Unlike Trainer it exposes no progress manager, so comparison
// triggers are not consulted and every post-step is a comparison point.
type Evaluator struct {
	handler Handler
	model   Model
	logger  logging.Logger
}

// NewEvaluator constructs an evaluator for the given model and handler.
func NewEvaluator(model Model, handler Handler, optFns ...func(o *EvaluatorOptions)) *Evaluator {
	opts := EvaluatorOptions{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Evaluator{
		handler: handler,
		model:   model,
		logger:  opts.Logger,
	}
}

// Handler returns the currently installed handler.
func (e *Evaluator) Handler() Handler { return e.handler }

// SetHandler replaces the handler slot.
func (e *Evaluator) SetHandler(h Handler) { e.handler = h }

// Models implements Engine; the evaluator exposes its single model as
// "main".
func (e *Evaluator) Models() map[string]Model { return map[string]Model{"main": e.model} }

// Run implements Engine. The handler lifecycle is: EvalLoopBegin, then
// for each batch ConvertBatch, EvalStep, EvalPostStep, then EvalLoopEnd.
func (e *Evaluator) Run(ctx context.Context, loader Loader) error {
	if err := e.handler.EvalLoopBegin(e); err != nil {
		return fmt.Errorf("eval loop begin: %w", err)
	}

	for i := 0; i < loader.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch := e.handler.ConvertBatch(loader.Batch(i))

		outputs, err := e.handler.EvalStep(e, i, batch)
		if err != nil {
			return fmt.Errorf("eval step %d: %w", i, err)
		}

		if err := e.handler.EvalPostStep(e, i, batch, outputs); err != nil {
			return err
		}
	}

	if err := e.handler.EvalLoopEnd(e); err != nil {
		return fmt.Errorf("eval loop end: %w", err)
	}

	e.logger.Debug("evaluation completed", "batches", loader.Len())

	return nil
}
