package parameter_set

import (
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer"
)

// ParameterSetOption is a functional option used to configure a ParameterSet during construction.
type ParameterSetOption func(*parameterSet)

// WithLabel sets the debug label of the parameter set.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - ParameterSetOption: a function that sets the label
func WithLabel(label string) ParameterSetOption {
	return func(p *parameterSet) {
		p.label = label
	}
}

// WithRange declares count consecutive slots of a kind starting at base.
//
// Parameters:
//   - name: a debug name for the range
//   - kind: the kind of resource bound in the range
//   - base: the first slot
//   - count: the number of slots
//
// Returns:
//   - ParameterSetOption: a function that declares the range
func WithRange(name string, kind renderer.BindingKind, base, count int) ParameterSetOption {
	return func(p *parameterSet) {
		p.ranges = append(p.ranges, renderer.BindingRange{Name: name, Kind: kind, BaseSlot: base, Count: count})
	}
}

// WithLayout declares every range of a root signature description.
//
// Parameters:
//   - layout: the ranges to declare
//
// Returns:
//   - ParameterSetOption: a function that declares the ranges
func WithLayout(layout renderer.RootSignatureDesc) ParameterSetOption {
	return func(p *parameterSet) {
		p.ranges = append(p.ranges, layout.Ranges...)
	}
}
