package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linshokaku/pytorch-pfn-extras/tensor"
)

// Interface compliance (compile-time assertions)
var (
	_ Engine  = (*Trainer)(nil)
	_ Engine  = (*Evaluator)(nil)
	_ Handler = (*recordingHandler)(nil)
	_ Model   = (*MapModel)(nil)
	_ Loader  = (SliceLoader)(nil)
)

// recordingHandler logs every hook invocation in order and produces a
// constant loss per step.
type recordingHandler struct {
	BaseHandler
	calls   []string
	stepErr error
}

func (h *recordingHandler) record(format string, args ...any) {
	h.calls = append(h.calls, fmt.Sprintf(format, args...))
}

func (h *recordingHandler) TrainSetup(*Trainer, Loader) error {
	h.record("setup")
	return nil
}

func (h *recordingHandler) TrainEpochBegin(*Trainer, Loader) error {
	h.record("epoch_begin")
	return nil
}

func (h *recordingHandler) TrainEpochEnd(*Trainer) error {
	h.record("epoch_end")
	return nil
}

func (h *recordingHandler) TrainValidationBegin(*Evaluator) error {
	h.record("validation_begin")
	return nil
}

func (h *recordingHandler) TrainValidationEnd(*Trainer, *Evaluator) error {
	h.record("validation_end")
	return nil
}

func (h *recordingHandler) TrainStep(_ *Trainer, batchIdx int, _ Batch) (Outputs, error) {
	h.record("step %d", batchIdx)
	if h.stepErr != nil {
		return nil, h.stepErr
	}
	return Outputs{"loss": tensor.Scalar(1)}, nil
}

func (h *recordingHandler) TrainPostStep(_ *Trainer, batchIdx int, _ Batch, _ Outputs) error {
	h.record("post_step %d", batchIdx)
	return nil
}

func (h *recordingHandler) EvalLoopBegin(*Evaluator) error {
	h.record("eval_begin")
	return nil
}

func (h *recordingHandler) EvalStep(_ *Evaluator, batchIdx int, _ Batch) (Outputs, error) {
	h.record("eval_step %d", batchIdx)
	return Outputs{"loss": tensor.Scalar(1)}, nil
}

func (h *recordingHandler) EvalLoopEnd(*Evaluator) error {
	h.record("eval_end")
	return nil
}

func (h *recordingHandler) EvalPostStep(_ *Evaluator, batchIdx int, _ Batch, _ Outputs) error {
	h.record("eval_post_step %d", batchIdx)
	return nil
}

func makeLoader(n int) SliceLoader {
	l := make(SliceLoader, n)
	for i := range l {
		l[i] = Batch{"x": tensor.Scalar(float64(i))}
	}
	return l
}

func TestTrainer_Run_HookOrder(t *testing.T) {
	h := &recordingHandler{}
	tr := NewTrainer(NewMapModel(nil), h, func(o *TrainerOptions) { o.Epochs = 2 })

	require.NoError(t, tr.Run(context.Background(), makeLoader(2)))

	assert.Equal(t, []string{
		"setup",
		"epoch_begin", "step 0", "post_step 0", "step 1", "post_step 1", "epoch_end",
		"epoch_begin", "step 0", "post_step 0", "step 1", "post_step 1", "epoch_end",
	}, h.calls)

	assert.Equal(t, 4, tr.Manager().Iteration())
	assert.Equal(t, 2, tr.Manager().Epoch())
}

func TestTrainer_Run_StepErrorStopsLoop(t *testing.T) {
	sentinel := errors.New("boom")
	h := &recordingHandler{stepErr: sentinel}
	tr := NewTrainer(NewMapModel(nil), h)

	err := tr.Run(context.Background(), makeLoader(3))
	assert.ErrorIs(t, err, sentinel)
	// First step fails; no post-step, no second step.
	assert.Equal(t, []string{"setup", "epoch_begin", "step 0"}, h.calls)
}

func TestTrainer_Run_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := NewTrainer(NewMapModel(nil), &recordingHandler{})
	err := tr.Run(ctx, makeLoader(1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrainer_Run_ValidationPass(t *testing.T) {
	h := &recordingHandler{}
	ev := NewEvaluator(NewMapModel(nil), h)
	tr := NewTrainer(NewMapModel(nil), h, func(o *TrainerOptions) {
		o.Evaluator = ev
		o.ValLoader = makeLoader(1)
	})

	require.NoError(t, tr.Run(context.Background(), makeLoader(1)))

	assert.Equal(t, []string{
		"setup",
		"epoch_begin", "step 0", "post_step 0", "epoch_end",
		"validation_begin", "eval_begin", "eval_step 0", "eval_post_step 0", "eval_end", "validation_end",
	}, h.calls)
}

func TestTrainer_SetHandler(t *testing.T) {
	h1 := &recordingHandler{}
	h2 := &recordingHandler{}
	tr := NewTrainer(NewMapModel(nil), h1)

	assert.Same(t, Handler(h1), tr.Handler())
	tr.SetHandler(h2)
	assert.Same(t, Handler(h2), tr.Handler())
}

func TestEvaluator_Run_HookOrder(t *testing.T) {
	h := &recordingHandler{}
	ev := NewEvaluator(NewMapModel(nil), h)

	require.NoError(t, ev.Run(context.Background(), makeLoader(2)))
	assert.Equal(t, []string{
		"eval_begin",
		"eval_step 0", "eval_post_step 0",
		"eval_step 1", "eval_post_step 1",
		"eval_end",
	}, h.calls)
}

func TestManager_Progress(t *testing.T) {
	m := NewManager(4)

	assert.Equal(t, 0, m.Iteration())
	assert.Equal(t, 0.0, m.EpochDetail())

	for i := 0; i < 6; i++ {
		m.Advance()
	}

	assert.Equal(t, 6, m.Iteration())
	assert.Equal(t, 1, m.Epoch())
	assert.Equal(t, 1.5, m.EpochDetail())
	assert.Equal(t, 4, m.EpochLength())
}

func TestManager_AheadView(t *testing.T) {
	m := NewManager(2)
	m.Advance() // iteration 1, mid-epoch

	view := m.Ahead(1)
	assert.Equal(t, 2, view.Iteration())
	assert.Equal(t, 1, view.Epoch())
	assert.Equal(t, 1.0, view.EpochDetail())

	// The underlying manager is unchanged.
	assert.Equal(t, 1, m.Iteration())
}

func TestBaseHandler_StepsRequireOverride(t *testing.T) {
	var h BaseHandler

	_, err := h.TrainStep(nil, 0, nil)
	assert.ErrorIs(t, err, ErrNoStep)

	_, err = h.EvalStep(nil, 0, nil)
	assert.ErrorIs(t, err, ErrNoStep)

	b := Batch{"x": tensor.Scalar(1)}
	assert.Equal(t, b, h.ConvertBatch(b))
}

func TestMapModel_StateDict(t *testing.T) {
	w := tensor.Vector(1, 2)
	m := NewMapModel(map[string]*tensor.Tensor{"fc.weight": w})

	sd := m.StateDict()
	assert.Same(t, w, sd["fc.weight"])

	// The returned map is a snapshot: mutating it does not touch the model.
	delete(sd, "fc.weight")
	assert.Same(t, w, m.Param("fc.weight"))

	m.SetParam("fc.bias", tensor.Scalar(0))
	assert.NotNil(t, m.Param("fc.bias"))
}
