package engine

import (
	"context"
	"fmt"

	"github.com/linshokaku/pytorch-pfn-extras/logging"
)

// Engine is the contract the comparison machinery drives: an opaque
// runnable with a swappable handler slot and state-dict access to its
// models. Trainer and Evaluator are the two recognized implementations.
type Engine interface {
	// Run drives the engine to completion over the given loader.
	Run(ctx context.Context, loader Loader) error
	// Handler returns the currently installed handler.
	Handler() Handler
	// SetHandler replaces the handler. Must not be called while Run is
	// in progress.
	SetHandler(h Handler)
	// Models returns the engine's models keyed by name; the entry "main"
	// is the one whose parameters are compared.
	Models() map[string]Model
}

// TrainerOptions holds configuration overrides passed to NewTrainer.
type TrainerOptions struct {
	// Epochs is the number of passes over the training loader.
	Epochs int
	// Evaluator, when set together with ValLoader, runs an in-training
	// validation pass after every epoch.
	Evaluator *Evaluator
	// ValLoader provides the validation batches.
	ValLoader Loader
	// Logger receives progress logs. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Trainer drives a training loop: per epoch it converts each batch,
// executes the handler's train step, and fires the post-step hook; an
// optional validation pass runs after every epoch.
type Trainer struct {
	handler   Handler
	model     Model
	manager   *Manager
	epochs    int
	evaluator *Evaluator
	valLoader Loader
	logger    logging.Logger
}

// NewTrainer constructs a trainer for the given model and handler with
// optional overrides.
func NewTrainer(model Model, handler Handler, optFns ...func(o *TrainerOptions)) *Trainer {
	opts := TrainerOptions{
		Epochs: 1,
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Trainer{
		handler:   handler,
		model:     model,
		epochs:    opts.Epochs,
		evaluator: opts.Evaluator,
		valLoader: opts.ValLoader,
		logger:    opts.Logger,
	}
}

// Handler returns the currently installed handler.
func (t *Trainer) Handler() Handler { return t.handler }

// SetHandler replaces the handler slot.
func (t *Trainer) SetHandler(h Handler) { t.handler = h }

// Models implements Engine; the trainer exposes its single model as "main".
func (t *Trainer) Models() map[string]Model { return map[string]Model{"main": t.model} }

// Manager returns the progress manager for the current (or last) run. It
// is nil before the first Run call.
func (t *Trainer) Manager() *Manager { return t.manager }

// Epochs returns the configured number of training epochs.
func (t *Trainer) Epochs() int { return t.epochs }

// Run implements Engine. The handler lifecycle per epoch is: EpochBegin,
// then for each batch ConvertBatch, TrainStep, TrainPostStep (the
// progress manager advances after the post-step hook returns), then
// EpochEnd and the optional validation pass. The first hook error or
// context cancellation stops the loop.
func (t *Trainer) Run(ctx context.Context, loader Loader) error {
	t.manager = NewManager(loader.Len())
	t.manager.Start()

	if err := t.handler.TrainSetup(t, loader); err != nil {
		return fmt.Errorf("train setup: %w", err)
	}

	for epoch := 0; epoch < t.epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := t.handler.TrainEpochBegin(t, loader); err != nil {
			return fmt.Errorf("epoch %d begin: %w", epoch, err)
		}

		for i := 0; i < loader.Len(); i++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			batch := t.handler.ConvertBatch(loader.Batch(i))

			outputs, err := t.handler.TrainStep(t, i, batch)
			if err != nil {
				return fmt.Errorf("train step %d: %w", t.manager.Iteration(), err)
			}

			if err := t.handler.TrainPostStep(t, i, batch, outputs); err != nil {
				return err
			}

			t.manager.Advance()
		}

		if err := t.handler.TrainEpochEnd(t); err != nil {
			return fmt.Errorf("epoch %d end: %w", epoch, err)
		}

		if t.evaluator != nil && t.valLoader != nil {
			if err := t.runValidation(ctx); err != nil {
				return err
			}
		}

		t.logger.Debug("epoch completed", "epoch", epoch, "iteration", t.manager.Iteration())
	}

	return nil
}

func (t *Trainer) runValidation(ctx context.Context) error {
	if err := t.handler.TrainValidationBegin(t.evaluator); err != nil {
		return fmt.Errorf("validation begin: %w", err)
	}

	if err := t.evaluator.Run(ctx, t.valLoader); err != nil {
		return fmt.Errorf("validation: %w", err)
	}

	if err := t.handler.TrainValidationEnd(t, t.evaluator); err != nil {
		return fmt.Errorf("validation end: %w", err)
	}

	return nil
}
