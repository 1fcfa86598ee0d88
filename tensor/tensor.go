package tensor

import (
	"fmt"
	"math"
)

// Device identifies where a tensor's backing storage lives. Backends that
// keep values on an accelerator report their own device string; comparisons
// always happen on host-side copies (see CPU/Detach).
type Device string

// DeviceCPU is the host device. Tensors constructed by this package live
// here unless a backend says otherwise.
const DeviceCPU Device = "cpu"

// Tensor is a dense, row-major numeric array. It is the unit of comparison
// between engine backends: per-step outputs and model parameters are both
// exposed as tensors.
type Tensor struct {
	shape  []int
	data   []float64
	device Device
}

// New creates a tensor with the given shape backed by data. The length of
// data must equal the product of the shape dimensions.
func New(shape []int, data []float64) (*Tensor, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("tensor: negative dimension %d in shape %v", d, shape)
		}
		n *= d
	}

	if n != len(data) {
		return nil, fmt.Errorf("tensor: shape %v requires %d elements, got %d", shape, n, len(data))
	}

	return &Tensor{
		shape:  append([]int(nil), shape...),
		data:   append([]float64(nil), data...),
		device: DeviceCPU,
	}, nil
}

// Vector creates a rank-1 tensor from the given values.
func Vector(values ...float64) *Tensor {
	t, _ := New([]int{len(values)}, values)
	return t
}

// Scalar creates a rank-0 tensor holding a single value.
func Scalar(value float64) *Tensor {
	t, _ := New([]int{}, []float64{value})
	return t
}

// OnDevice returns a copy of t tagged with the given device. Used by
// backends that mirror values onto accelerators.
func (t *Tensor) OnDevice(d Device) *Tensor {
	c := t.Clone()
	c.device = d
	return c
}

// Device reports where the tensor's storage lives.
func (t *Tensor) Device() Device { return t.device }

// Shape returns a copy of the tensor's dimensions.
func (t *Tensor) Shape() []int { return append([]int(nil), t.shape...) }

// Len returns the total number of elements.
func (t *Tensor) Len() int { return len(t.data) }

// At returns the i-th element in row-major order.
func (t *Tensor) At(i int) float64 { return t.data[i] }

// Data returns the underlying elements in row-major order. The returned
// slice is shared with the tensor; callers must not mutate it.
func (t *Tensor) Data() []float64 { return t.data }

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		shape:  append([]int(nil), t.shape...),
		data:   append([]float64(nil), t.data...),
		device: t.device,
	}
}

// CPU returns a host-side copy of the tensor. A tensor already on the CPU
// is still copied so the caller owns the result.
func (t *Tensor) CPU() *Tensor {
	c := t.Clone()
	c.device = DeviceCPU
	return c
}

// Detach returns a copy decoupled from whatever produced the tensor.
// Together with CPU it mirrors the usual "move to host, drop autograd"
// dance before numeric comparison.
func (t *Tensor) Detach() *Tensor { return t.Clone() }

// SameShape reports whether two tensors have identical dimensions.
func SameShape(a, b *Tensor) bool {
	if len(a.shape) != len(b.shape) {
		return false
	}
	for i := range a.shape {
		if a.shape[i] != b.shape[i] {
			return false
		}
	}
	return true
}

// AllCloseOpts configures numeric tolerance for AllClose.
type AllCloseOpts struct {
	// RTol is the relative tolerance, scaled by the magnitude of the
	// reference element.
	RTol float64
	// ATol is the absolute tolerance floor.
	ATol float64
	// EqualNaN treats a pair of NaNs as equal instead of as a mismatch.
	EqualNaN bool
}

// AllClose reports whether every element of a is within tolerance of the
// corresponding element of b, using |a-b| <= atol + rtol*|b|. A nil error
// means the tensors match; otherwise the error names the first offending
// element with both values and the allowed tolerance.
func AllClose(a, b *Tensor, opts AllCloseOpts) error {
	if !SameShape(a, b) {
		return fmt.Errorf("tensor: shape mismatch %v vs %v", a.shape, b.shape)
	}

	for i := range a.data {
		va, vb := a.data[i], b.data[i]

		if math.IsNaN(va) || math.IsNaN(vb) {
			if opts.EqualNaN && math.IsNaN(va) && math.IsNaN(vb) {
				continue
			}
			return fmt.Errorf("tensor: NaN mismatch at index %d: %v vs %v", i, va, vb)
		}

		tol := opts.ATol + opts.RTol*math.Abs(vb)
		if diff := math.Abs(va - vb); diff > tol {
			return fmt.Errorf(
				"tensor: values differ at index %d: %v vs %v (diff %v, allowed %v)",
				i, va, vb, diff, tol,
			)
		}
	}

	return nil
}
