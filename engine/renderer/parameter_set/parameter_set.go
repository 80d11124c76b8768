package parameter_set

import (
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/Carmen-Shannon/oxy-ivy/engine/content"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer"
)

// ErrSlotOutOfRange is returned when a resource is set at a slot no declared range of its kind covers.
var ErrSlotOutOfRange = errors.New("parameter set: slot outside every declared range")

// parameterSet is the implementation of the ParameterSet interface.
type parameterSet struct {
	mu *sync.Mutex

	// label is a debug label added for convenience.
	label string

	// ranges are the declared slot ranges; every binding must fall inside one of its kind.
	ranges []renderer.BindingRange

	// constantBuffers holds root constant buffer views keyed by slot.
	constantBuffers map[int]renderer.BufferAddress
	// accelerationStructures holds acceleration structures keyed by slot.
	accelerationStructures map[int]renderer.AccelerationStructure
	// buffers holds device buffers keyed by slot.
	buffers map[int]renderer.Buffer
	// contentBuffers holds content geometry buffers keyed by slot.
	contentBuffers map[int]content.Buffer
	// textures holds content textures keyed by slot.
	textures map[int]content.Texture
	// samplers holds samplers keyed by slot.
	samplers map[int]renderer.Sampler
}

// ParameterSet is the complete set of resources bound for an execution graph dispatch: root
// constants, the acceleration structure and every bindless table, each keyed by its absolute
// slot. Slots must fall inside the ranges declared at construction.
//
// ParameterSet is safe for concurrent use.
type ParameterSet interface {
	// Label returns the debug label for this parameter set.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Layout returns the declared ranges as a root signature description.
	//
	// Returns:
	//   - renderer.RootSignatureDesc: the layout
	Layout() renderer.RootSignatureDesc

	// SetRootConstantBuffer binds a constant buffer view at a slot.
	//
	// Parameters:
	//   - slot: the absolute slot
	//   - addr: the constant data range
	//
	// Returns:
	//   - error: ErrSlotOutOfRange if no constant buffer range covers the slot
	SetRootConstantBuffer(slot int, addr renderer.BufferAddress) error

	// SetAccelerationStructure binds an acceleration structure at a slot.
	//
	// Parameters:
	//   - slot: the absolute slot
	//   - as: the acceleration structure, or nil to unbind
	//
	// Returns:
	//   - error: ErrSlotOutOfRange if no acceleration structure range covers the slot
	SetAccelerationStructure(slot int, as renderer.AccelerationStructure) error

	// SetBuffer binds a device buffer at a slot.
	//
	// Parameters:
	//   - slot: the absolute slot
	//   - buf: the buffer, or nil to unbind
	//
	// Returns:
	//   - error: ErrSlotOutOfRange if no buffer range covers the slot
	SetBuffer(slot int, buf renderer.Buffer) error

	// SetContentBuffer binds a content geometry buffer at a slot.
	//
	// Parameters:
	//   - slot: the absolute slot
	//   - buf: the buffer, or nil to unbind
	//
	// Returns:
	//   - error: ErrSlotOutOfRange if no buffer range covers the slot
	SetContentBuffer(slot int, buf content.Buffer) error

	// SetTexture binds a texture at a slot.
	//
	// Parameters:
	//   - slot: the absolute slot
	//   - tex: the texture, or nil to unbind
	//
	// Returns:
	//   - error: ErrSlotOutOfRange if no texture range covers the slot
	SetTexture(slot int, tex content.Texture) error

	// SetSampler binds a sampler at a slot.
	//
	// Parameters:
	//   - slot: the absolute slot
	//   - s: the sampler, or nil to unbind
	//
	// Returns:
	//   - error: ErrSlotOutOfRange if no sampler range covers the slot
	SetSampler(slot int, s renderer.Sampler) error

	// Buffer returns the device buffer bound at a slot, or nil.
	Buffer(slot int) renderer.Buffer

	// ContentBuffer returns the content buffer bound at a slot, or nil.
	ContentBuffer(slot int) content.Buffer

	// Texture returns the texture bound at a slot, or nil.
	Texture(slot int) content.Texture

	// Sampler returns the sampler bound at a slot, or nil.
	Sampler(slot int) renderer.Sampler

	// Count returns the number of bound resources of a kind.
	//
	// Parameters:
	//   - kind: the binding kind
	//
	// Returns:
	//   - int: the number of bound slots
	Count(kind renderer.BindingKind) int

	// Bind hands a snapshot of every binding to the command list.
	//
	// Parameters:
	//   - cmd: the command list
	Bind(cmd renderer.CommandList)

	// Release drops every binding. Resources are owned elsewhere and are not released.
	Release()
}

var _ ParameterSet = &parameterSet{}

// NewParameterSet creates an empty ParameterSet.
//
// Parameters:
//   - options: ParameterSetOption values declaring ranges and a label
//
// Returns:
//   - ParameterSet: the parameter set
func NewParameterSet(options ...ParameterSetOption) ParameterSet {
	p := &parameterSet{
		mu:                     &sync.Mutex{},
		constantBuffers:        make(map[int]renderer.BufferAddress),
		accelerationStructures: make(map[int]renderer.AccelerationStructure),
		buffers:                make(map[int]renderer.Buffer),
		contentBuffers:         make(map[int]content.Buffer),
		textures:               make(map[int]content.Texture),
		samplers:               make(map[int]renderer.Sampler),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *parameterSet) Label() string {
	return p.label
}

func (p *parameterSet) Layout() renderer.RootSignatureDesc {
	return renderer.RootSignatureDesc{Ranges: append([]renderer.BindingRange(nil), p.ranges...)}
}

// check verifies a slot is covered by a declared range of the kind.
func (p *parameterSet) check(kind renderer.BindingKind, slot int) error {
	for _, r := range p.ranges {
		if r.Kind == kind && r.Contains(slot) {
			return nil
		}
	}
	return fmt.Errorf("%w: kind %d slot %d", ErrSlotOutOfRange, kind, slot)
}

// set stores or deletes v in m under the lock after checking the slot.
func set[T comparable](p *parameterSet, m map[int]T, kind renderer.BindingKind, slot int, v T) error {
	if err := p.check(kind, slot); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var zero T
	if v == zero {
		delete(m, slot)
		return nil
	}
	m[slot] = v
	return nil
}

func (p *parameterSet) SetRootConstantBuffer(slot int, addr renderer.BufferAddress) error {
	return set(p, p.constantBuffers, renderer.BindingKindConstantBuffer, slot, addr)
}

func (p *parameterSet) SetAccelerationStructure(slot int, as renderer.AccelerationStructure) error {
	return set(p, p.accelerationStructures, renderer.BindingKindAccelerationStructure, slot, as)
}

func (p *parameterSet) SetBuffer(slot int, buf renderer.Buffer) error {
	return set(p, p.buffers, renderer.BindingKindBuffer, slot, buf)
}

func (p *parameterSet) SetContentBuffer(slot int, buf content.Buffer) error {
	return set(p, p.contentBuffers, renderer.BindingKindBuffer, slot, buf)
}

func (p *parameterSet) SetTexture(slot int, tex content.Texture) error {
	return set(p, p.textures, renderer.BindingKindTexture, slot, tex)
}

func (p *parameterSet) SetSampler(slot int, s renderer.Sampler) error {
	return set(p, p.samplers, renderer.BindingKindSampler, slot, s)
}

func (p *parameterSet) Buffer(slot int) renderer.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffers[slot]
}

func (p *parameterSet) ContentBuffer(slot int) content.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.contentBuffers[slot]
}

func (p *parameterSet) Texture(slot int) content.Texture {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.textures[slot]
}

func (p *parameterSet) Sampler(slot int) renderer.Sampler {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.samplers[slot]
}

func (p *parameterSet) Count(kind renderer.BindingKind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch kind {
	case renderer.BindingKindConstantBuffer:
		return len(p.constantBuffers)
	case renderer.BindingKindAccelerationStructure:
		return len(p.accelerationStructures)
	case renderer.BindingKindBuffer:
		return len(p.buffers) + len(p.contentBuffers)
	case renderer.BindingKindTexture:
		return len(p.textures)
	case renderer.BindingKindSampler:
		return len(p.samplers)
	default:
		return 0
	}
}

func (p *parameterSet) Bind(cmd renderer.CommandList) {
	p.mu.Lock()
	b := renderer.Bindings{
		ConstantBuffers:        maps.Clone(p.constantBuffers),
		AccelerationStructures: maps.Clone(p.accelerationStructures),
		Buffers:                maps.Clone(p.buffers),
		ContentBuffers:         maps.Clone(p.contentBuffers),
		Textures:               maps.Clone(p.textures),
		Samplers:               maps.Clone(p.samplers),
	}
	p.mu.Unlock()
	cmd.SetBindings(b)
}

func (p *parameterSet) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.constantBuffers)
	clear(p.accelerationStructures)
	clear(p.buffers)
	clear(p.contentBuffers)
	clear(p.textures)
	clear(p.samplers)
}
