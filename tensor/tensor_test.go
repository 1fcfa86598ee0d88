package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ShapeValidation(t *testing.T) {
	_, err := New([]int{2, 2}, []float64{1, 2, 3})
	assert.Error(t, err)

	_, err = New([]int{-1}, nil)
	assert.Error(t, err)

	tr, err := New([]int{2, 2}, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, tr.Shape())
	assert.Equal(t, 4, tr.Len())
	assert.Equal(t, 3.0, tr.At(2))
}

func TestVectorAndScalar(t *testing.T) {
	v := Vector(1, 2, 3)
	assert.Equal(t, []int{3}, v.Shape())

	s := Scalar(42)
	assert.Equal(t, []int{}, s.Shape())
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 42.0, s.At(0))
}

func TestClone_IsIndependent(t *testing.T) {
	orig := Vector(1, 2, 3)
	clone := orig.Clone()
	clone.Data()[0] = 99

	assert.Equal(t, 1.0, orig.At(0))
	assert.Equal(t, 99.0, clone.At(0))
}

func TestCPU_ReturnsHostCopy(t *testing.T) {
	gpu := Vector(1, 2).OnDevice("cuda:0")
	assert.Equal(t, Device("cuda:0"), gpu.Device())

	host := gpu.CPU()
	assert.Equal(t, DeviceCPU, host.Device())
	assert.Equal(t, gpu.Data(), host.Data())

	detached := gpu.Detach()
	assert.Equal(t, gpu.Device(), detached.Device())
}

func TestAllClose(t *testing.T) {
	tests := []struct {
		name    string
		a, b    *Tensor
		opts    AllCloseOpts
		wantErr bool
	}{
		{
			name: "exact match",
			a:    Vector(1, 2, 3),
			b:    Vector(1, 2, 3),
		},
		{
			name:    "beyond absolute tolerance",
			a:       Vector(1.0),
			b:       Vector(1.1),
			opts:    AllCloseOpts{ATol: 0.05},
			wantErr: true,
		},
		{
			name: "within absolute tolerance",
			a:    Vector(1.0),
			b:    Vector(1.04),
			opts: AllCloseOpts{ATol: 0.05},
		},
		{
			name: "within relative tolerance",
			a:    Vector(100.0),
			b:    Vector(100.5),
			opts: AllCloseOpts{RTol: 0.01},
		},
		{
			name:    "beyond relative tolerance",
			a:       Vector(100.0),
			b:       Vector(102.0),
			opts:    AllCloseOpts{RTol: 0.01},
			wantErr: true,
		},
		{
			name:    "shape mismatch",
			a:       Vector(1, 2),
			b:       Vector(1, 2, 3),
			wantErr: true,
		},
		{
			name: "nan equal when enabled",
			a:    Vector(math.NaN(), 1),
			b:    Vector(math.NaN(), 1),
			opts: AllCloseOpts{EqualNaN: true},
		},
		{
			name:    "nan mismatch when disabled",
			a:       Vector(math.NaN()),
			b:       Vector(math.NaN()),
			wantErr: true,
		},
		{
			name:    "nan against number",
			a:       Vector(math.NaN()),
			b:       Vector(1.0),
			opts:    AllCloseOpts{EqualNaN: true},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AllClose(tt.a, tt.b, tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
