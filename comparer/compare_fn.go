package comparer

import (
	"fmt"

	"github.com/linshokaku/pytorch-pfn-extras/tensor"
)

// CompareFn asserts that the same-named value captured from two backends
// is numerically equivalent. A nil return means the values match; any
// error is treated as a fatal comparison mismatch and aborts the run.
type CompareFn func(backend1, backend2, key string, val1, val2 *tensor.Tensor) error

// CompareConfig parameterizes the default comparison function.
type CompareConfig struct {
	// RTol is the relative tolerance.
	RTol float64
	// ATol is the absolute tolerance.
	ATol float64
	// EqualNaN treats paired NaNs as equal.
	EqualNaN bool
	// Msg overrides the error prefix printed on mismatch.
	Msg string
}

// DefaultCompareConfig returns the standard tolerances: rtol 1e-7, atol 0,
// NaNs considered equal.
func DefaultCompareConfig() CompareConfig {
	return CompareConfig{RTol: 1e-7, ATol: 0, EqualNaN: true}
}

// NewCompareFn builds a CompareFn from the given tolerances. Values are
// compared as host-side detached copies.
func NewCompareFn(cfg CompareConfig) CompareFn {
	return func(backend1, backend2, key string, val1, val2 *tensor.Tensor) error {
		err := tensor.AllClose(val1.CPU().Detach(), val2.CPU().Detach(), tensor.AllCloseOpts{
			RTol:     cfg.RTol,
			ATol:     cfg.ATol,
			EqualNaN: cfg.EqualNaN,
		})
		if err == nil {
			return nil
		}

		if cfg.Msg != "" {
			return fmt.Errorf("%s: %w", cfg.Msg, err)
		}

		return fmt.Errorf("comparing %q and %q in %q: %w", backend1, backend2, key, err)
	}
}

// DefaultCompareFn is the comparison function used when no override is
// configured.
func DefaultCompareFn() CompareFn {
	return NewCompareFn(DefaultCompareConfig())
}
