package engine

import (
	"github.com/linshokaku/pytorch-pfn-extras/tensor"
)

// Model exposes a backend's parameters by name. The comparison machinery
// only ever reads the state dict; training updates go through whatever
// mechanism the handler implements.
type Model interface {
	// StateDict returns the current parameters keyed by name. The map is
	// a snapshot the caller may iterate freely; the tensor values are
	// shared with the model.
	StateDict() map[string]*tensor.Tensor
}

// MapModel is a minimal Model backed by a parameter map. It is sufficient
// for handlers that mutate parameters in place and for tests.
type MapModel struct {
	params map[string]*tensor.Tensor
}

// NewMapModel creates a model holding the given named parameters.
func NewMapModel(params map[string]*tensor.Tensor) *MapModel {
	ps := make(map[string]*tensor.Tensor, len(params))
	for k, v := range params {
		ps[k] = v
	}
	return &MapModel{params: ps}
}

// StateDict implements Model.
func (m *MapModel) StateDict() map[string]*tensor.Tensor {
	sd := make(map[string]*tensor.Tensor, len(m.params))
	for k, v := range m.params {
		sd[k] = v
	}
	return sd
}

// Param returns the named parameter, or nil if absent.
func (m *MapModel) Param(name string) *tensor.Tensor { return m.params[name] }

// SetParam stores or replaces the named parameter.
func (m *MapModel) SetParam(name string, value *tensor.Tensor) { m.params[name] = value }
