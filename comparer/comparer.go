package comparer

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/semaphore"

	"github.com/linshokaku/pytorch-pfn-extras/engine"
	"github.com/linshokaku/pytorch-pfn-extras/internal/syncutil"
	"github.com/linshokaku/pytorch-pfn-extras/logging"
	"github.com/linshokaku/pytorch-pfn-extras/tensor"
	"github.com/linshokaku/pytorch-pfn-extras/trigger"
)

// Selection specifies which output or parameter keys take part in a
// comparison. The zero value selects nothing.
type Selection struct {
	// All selects every available key. For outputs this means every key
	// of the first reported output set; for parameters every key of the
	// reference model's state dict.
	All bool
	// Keys selects explicit keys. For parameters each entry is a regular
	// expression matched against state dict keys from the beginning of
	// the key; a pattern matching nothing is a configuration error.
	Keys []string
}

// SelectAll selects every available key.
func SelectAll() Selection { return Selection{All: true} }

// SelectNone selects no keys.
func SelectNone() Selection { return Selection{} }

// SelectKeys selects the given keys (or patterns, for parameters).
func SelectKeys(keys ...string) Selection {
	return Selection{Keys: append([]string(nil), keys...)}
}

// Options holds configuration overrides passed to New.
type Options struct {
	// Trigger decides which steps are comparison points. Defaults to
	// once per epoch.
	Trigger trigger.Trigger
	// CompareFn asserts numeric equivalence of captured values.
	// Defaults to DefaultCompareFn.
	CompareFn CompareFn
	// Concurrency bounds how many engines run simultaneously outside of
	// comparison points. Zero means one slot per engine, i.e. no
	// throttling beyond true parallelism.
	Concurrency int
	// Outputs selects which step-output keys are compared. Defaults to
	// all keys.
	Outputs Selection
	// Params selects which model parameters are compared, as regex
	// patterns over state dict keys. Defaults to none.
	Params Selection
	// Logger receives run and round logs. Defaults to NoOpLogger.
	Logger logging.Logger
}

type engineKind int

const (
	kindUnset engineKind = iota
	kindTrainer
	kindEvaluator
)

type registration struct {
	engine engine.Engine
	loader engine.Loader
}

// progressReporter is satisfied by engines that expose an iteration/epoch
// manager (trainers). Engines without one skip the trigger gate entirely,
// so every post-step becomes a comparison point.
type progressReporter interface {
	Manager() *engine.Manager
}

// Comparer drives N registered engines in lockstep and asserts that the
// outputs (and optionally parameters) they produce at every comparison
// point are numerically equivalent. The first registered engine is the
// reference; every other engine is compared against it key by key.
//
// Registration is not safe for concurrent use; Compare coordinates its
// own worker goroutines and blocks until all engines finish or one fails.
type Comparer struct {
	kind      engineKind
	names     []string // registration order; names[0] is the reference
	engines   map[string]registration
	trig      trigger.Trigger
	compareFn CompareFn
	conc      int
	outputs   Selection
	params    Selection
	logger    logging.Logger

	// mu guards targets, the resolved key sets and the finalized flag.
	mu                 sync.Mutex
	targets            map[string]map[string]*tensor.Tensor
	outputKeys         []string
	outputKeysResolved bool
	paramKeys          []string
	paramKeysResolved  bool
	finalized          bool
	round              int

	barrier *syncutil.Barrier
	sem     *semaphore.Weighted
	runID   string
}

// New constructs a Comparer with optional overrides.
func New(optFns ...func(o *Options)) *Comparer {
	opts := Options{
		Trigger:   trigger.Default(),
		CompareFn: DefaultCompareFn(),
		Outputs:   SelectAll(),
		Params:    SelectNone(),
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Comparer{
		engines:   make(map[string]registration),
		targets:   make(map[string]map[string]*tensor.Tensor),
		trig:      opts.Trigger,
		compareFn: opts.CompareFn,
		conc:      opts.Concurrency,
		outputs:   opts.Outputs,
		params:    opts.Params,
		logger:    opts.Logger,
	}
}

// AddEngine registers an engine under a unique name together with the
// loader later passed to its run. The engine must be a *engine.Trainer or
// *engine.Evaluator, and all engines of one Comparer must be of the same
// kind; the first registration fixes the accepted kind. Registration
// replaces the engine's handler with an intercepting proxy.
func (c *Comparer) AddEngine(name string, eng engine.Engine, loader engine.Loader) error {
	var kind engineKind
	switch eng.(type) {
	case *engine.Trainer:
		kind = kindTrainer
	case *engine.Evaluator:
		kind = kindEvaluator
	default:
		return fmt.Errorf("%w: %T", ErrEngineType, eng)
	}

	if c.kind == kindUnset {
		c.kind = kind
	} else if c.kind != kind {
		return fmt.Errorf("%w: cannot register %T", ErrEngineKindMismatch, eng)
	}

	if _, ok := c.engines[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateEngine, name)
	}

	c.names = append(c.names, name)
	c.engines[name] = registration{engine: eng, loader: loader}
	eng.SetHandler(newComparableHandler(eng.Handler(), name, c.captureTargets))

	c.logger.Debug("engine registered", "engine", name)

	return nil
}

// Engines returns the registered engine names in registration order.
func (c *Comparer) Engines() []string { return append([]string(nil), c.names...) }

// captureTargets is the proxy callback invoked after every completed step
// of any registered engine. Non-triggering steps return immediately and
// do not take part in the synchronization handshake.
func (c *Comparer) captureTargets(h *comparableHandler, models map[string]engine.Model, batchIdx int, outputs engine.Outputs) error {
	reg := c.engines[h.name]

	if p, ok := reg.engine.(progressReporter); ok && p.Manager() != nil {
		// Evaluate the trigger one iteration ahead: the step that just
		// finished is counted, the manager itself advances afterwards.
		if !c.trig.Fire(p.Manager().Ahead(1)) {
			return nil
		}
	}

	if err := c.report(h.name, models, outputs); err != nil {
		return err
	}

	// Rendezvous handshake: give up the concurrency slot so peers can
	// reach the same point, wait for all of them, then take a slot back
	// before letting the engine continue.
	c.sem.Release(1)
	waitErr := c.barrier.Wait()
	// Re-acquire unconditionally so the worker's slot accounting stays
	// balanced even when the barrier was broken; slots are guaranteed to
	// free up as peers unwind.
	if err := c.sem.Acquire(context.Background(), 1); err != nil {
		return err
	}

	return waitErr
}

// report stores the engine's target set and, once all engines have
// reported for the current point, runs the pairwise comparison and resets
// the accumulator. The whole transition is serialized under mu.
func (c *Comparer) report(name string, models map[string]engine.Model, outputs engine.Outputs) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.addTarget(name, models, outputs); err != nil {
		return err
	}

	if len(c.targets) == len(c.engines) {
		c.round++
		err := c.compareRound()
		logging.LogComparisonRound(c.logger, c.runID, c.round, len(c.outputKeys)+len(c.paramKeys), err)
		if err != nil {
			return err
		}
		c.targets = make(map[string]map[string]*tensor.Tensor)
	}

	if c.finalized {
		// A peer already finished its whole run while this engine still
		// hits comparison points.
		return fmt.Errorf("%w: %q reported after a peer finished", ErrTriggerMismatch, name)
	}

	return nil
}

// addTarget extracts the selected outputs and parameters into the target
// set for one engine. Key sets are resolved lazily from the first engine
// to report and stay fixed for the rest of the run. Caller holds mu.
func (c *Comparer) addTarget(name string, models map[string]engine.Model, outputs engine.Outputs) error {
	if !c.outputKeysResolved {
		if c.outputs.All {
			c.outputKeys = sortedKeys(outputs)
		} else {
			c.outputKeys = append([]string(nil), c.outputs.Keys...)
		}
		c.outputKeysResolved = true
	}

	if !c.paramKeysResolved {
		keys, err := resolveParamKeys(c.params, models["main"])
		if err != nil {
			return err
		}
		c.paramKeys = keys
		c.paramKeysResolved = true
	}

	target := make(map[string]*tensor.Tensor, len(c.outputKeys)+len(c.paramKeys))

	for _, key := range c.outputKeys {
		val, ok := outputs[key]
		if !ok {
			return fmt.Errorf("comparer: engine %q produced no output %q", name, key)
		}
		target[key] = val
	}

	if len(c.paramKeys) > 0 {
		sdict := models["main"].StateDict()
		for _, key := range c.paramKeys {
			val, ok := sdict[key]
			if !ok {
				return fmt.Errorf("comparer: engine %q has no parameter %q", name, key)
			}
			target[key] = val
		}
	}

	c.targets[name] = target

	return nil
}

// compareRound compares every non-reference engine against the reference,
// key by key. Caller holds mu.
func (c *Comparer) compareRound() error {
	ref := c.names[0]
	refTarget := c.targets[ref]
	keys := sortedKeys(refTarget)

	for _, other := range c.names[1:] {
		otherTarget := c.targets[other]
		for _, key := range keys {
			val, ok := otherTarget[key]
			if !ok {
				return fmt.Errorf("comparer: engine %q captured no value for %q", other, key)
			}
			if err := c.compareFn(ref, other, key, refTarget[key], val); err != nil {
				return err
			}
		}
	}

	return nil
}

// Compare launches one worker per registered engine, drives all engines
// to completion in lockstep and blocks until they finish. Configuration
// problems (unresolvable parameter patterns) fail before any engine
// starts. Any worker failure breaks the shared barrier so no peer hangs;
// the returned error aggregates every worker's failure, the first one
// included.
func (c *Comparer) Compare(ctx context.Context) error {
	if len(c.names) == 0 {
		return ErrNoEngines
	}

	c.mu.Lock()
	if !c.paramKeysResolved {
		first := c.engines[c.names[0]]
		keys, err := resolveParamKeys(c.params, first.engine.Models()["main"])
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.paramKeys = keys
		c.paramKeysResolved = true
	}
	c.targets = make(map[string]map[string]*tensor.Tensor)
	c.finalized = false
	c.round = 0
	c.runID = uuid.NewString()
	c.mu.Unlock()

	n := len(c.names)
	limit := c.conc
	if limit <= 0 {
		limit = n
	}

	c.barrier = syncutil.NewBarrier(n)
	c.sem = semaphore.NewWeighted(int64(limit))

	c.logger.Info("comparison run starting", "run_id", c.runID, "engines", n, "concurrency", limit)

	var wg sync.WaitGroup
	errs := make([]error, n)

	for i, name := range c.names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			errs[i] = c.runEngine(ctx, name)
		}(i, name)
	}

	wg.Wait()

	err := multierr.Combine(errs...)
	if err != nil {
		c.logger.Error("comparison run failed", "run_id", c.runID, "error", err.Error())
	} else {
		c.logger.Info("comparison run completed", "run_id", c.runID, "rounds", c.round)
	}

	return err
}

// runEngine is the per-engine worker: acquire a concurrency slot, run the
// engine to completion, then assert that no target set was left behind.
// Any failure breaks the barrier so blocked peers fail fast instead of
// waiting for a participant that will never arrive.
func (c *Comparer) runEngine(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() {
		logging.LogEngineRun(c.logger, c.runID, name, time.Since(start), err)
		if err != nil {
			c.barrier.Abort()
		}
	}()

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)

	reg := c.engines[name]
	if err := reg.engine.Run(ctx, reg.loader); err != nil {
		return fmt.Errorf("engine %q: %w", name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.finalized = true
	if len(c.targets) != 0 {
		return fmt.Errorf("%w: %d unconsumed target set(s) at finalization", ErrTriggerMismatch, len(c.targets))
	}

	return nil
}

// Dump is the entry point for recording a single engine's comparison
// points to disk. Persistence-based comparison is deliberately
// unsupported.
func (c *Comparer) Dump(eng engine.Engine, dir string, loader engine.Loader) error {
	return fmt.Errorf("%w: Dump", ErrNotImplemented)
}

// CompareWithDump is the entry point for comparing against a previously
// recorded run. Persistence-based comparison is deliberately unsupported.
func (c *Comparer) CompareWithDump(dir string) error {
	return fmt.Errorf("%w: CompareWithDump", ErrNotImplemented)
}

// resolveParamKeys expands parameter-selection patterns against a model's
// state dict. Every pattern must match at least one key.
func resolveParamKeys(sel Selection, model engine.Model) ([]string, error) {
	if !sel.All && len(sel.Keys) == 0 {
		return nil, nil
	}

	if model == nil {
		return nil, fmt.Errorf("comparer: no main model to resolve parameter keys against")
	}

	names := sortedKeys(model.StateDict())
	if sel.All {
		return names, nil
	}

	var resolved []string
	for _, pattern := range sel.Keys {
		re, err := regexp.Compile(`\A(?:` + pattern + `)`)
		if err != nil {
			return nil, fmt.Errorf("comparer: invalid parameter pattern %q: %w", pattern, err)
		}

		matched := false
		for _, key := range names {
			if re.MatchString(key) {
				resolved = append(resolved, key)
				matched = true
			}
		}
		if !matched {
			return nil, fmt.Errorf("%w: %q", ErrNoParamMatch, pattern)
		}
	}

	return resolved, nil
}

func sortedKeys(m map[string]*tensor.Tensor) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
