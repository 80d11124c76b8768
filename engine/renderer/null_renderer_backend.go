package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-ivy/common"
)

// defaultNullBackingMemory is the backing memory size a NullDevice reports unless configured.
const defaultNullBackingMemory = 64 * 1024

// nullMaxAlignment is the largest buffer placement alignment a NullDevice accepts.
const nullMaxAlignment = 1 << 16

// NullDevice is a Device that allocates nothing and records every request. It backs tests and
// dry runs on machines without execution graph support.
type NullDevice struct {
	mu *sync.Mutex

	tier              WorkGraphsTier
	tierErr           error
	stateObjectErr    error
	bufferErr         error
	backingMemorySize uint64
	entrypoints       []string

	buffers      []*NullBuffer
	samplers     []*NullSampler
	stateObjects []*NullStateObject
	constants    [][]byte
}

var _ Device = &NullDevice{}

// NullBuffer is a buffer created by a NullDevice. It keeps a copy of its initial data.
type NullBuffer struct {
	desc     BufferDesc
	released bool
}

var _ Buffer = &NullBuffer{}

// NullSampler is a sampler created by a NullDevice.
type NullSampler struct {
	desc     common.SamplerDesc
	released bool
}

var _ Sampler = &NullSampler{}

// NullStateObject is a state object created by a NullDevice.
type NullStateObject struct {
	mu          *sync.Mutex
	serial      uint64
	desc        StateObjectDesc
	memSize     uint64
	entrypoints []string
	fixed       bool

	maxRecords     uint32
	maxEntrypoints uint32
	released       bool
}

var _ StateObject = &NullStateObject{}

// NewNullDevice creates a recording device. By default it reports WorkGraphsTier1_1 and a
// 64 KiB backing memory requirement.
//
// Parameters:
//   - options: NullDeviceOption values to configure the device
//
// Returns:
//   - *NullDevice: the device
func NewNullDevice(options ...NullDeviceOption) *NullDevice {
	d := &NullDevice{
		mu:                &sync.Mutex{},
		tier:              WorkGraphsTier1_1,
		backingMemorySize: defaultNullBackingMemory,
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

func (d *NullDevice) WorkGraphsTier() (WorkGraphsTier, error) {
	return d.tier, d.tierErr
}

func (d *NullDevice) CreateStateObject(desc StateObjectDesc) (StateObject, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stateObjectErr != nil {
		return nil, d.stateObjectErr
	}
	if desc.ProgramName == "" {
		return nil, errors.New("renderer: state object needs a program name")
	}
	so := &NullStateObject{
		mu:          &sync.Mutex{},
		serial:      uint64(len(d.stateObjects) + 1),
		desc:        desc,
		memSize:     d.backingMemorySize,
		entrypoints: append([]string(nil), d.entrypoints...),
		fixed:       len(d.entrypoints) > 0,
	}
	d.stateObjects = append(d.stateObjects, so)
	return so, nil
}

func (d *NullDevice) CreateBuffer(desc BufferDesc) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.bufferErr != nil {
		return nil, d.bufferErr
	}
	if uint64(len(desc.Data)) > desc.Size {
		return nil, fmt.Errorf("renderer: %d bytes of initial data exceed buffer %q of %d bytes", len(desc.Data), desc.Label, desc.Size)
	}
	if err := checkAlignment(desc, nullMaxAlignment); err != nil {
		return nil, err
	}
	desc.Data = append([]byte(nil), desc.Data...)
	b := &NullBuffer{desc: desc}
	d.buffers = append(d.buffers, b)
	return b, nil
}

func (d *NullDevice) CreateSampler(desc common.SamplerDesc) (Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := &NullSampler{desc: desc}
	d.samplers = append(d.samplers, s)
	return s, nil
}

func (d *NullDevice) AllocConstantBuffer(data []byte) (BufferAddress, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cp := append([]byte(nil), data...)
	d.constants = append(d.constants, cp)
	b := &NullBuffer{desc: BufferDesc{Label: "constants", Size: uint64(len(cp)), Data: cp}}
	return BufferAddress{Buffer: b, Size: uint64(len(cp))}, nil
}

// Buffers returns every buffer created so far, in creation order.
func (d *NullDevice) Buffers() []*NullBuffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*NullBuffer(nil), d.buffers...)
}

// Samplers returns every sampler created so far, in creation order.
func (d *NullDevice) Samplers() []*NullSampler {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*NullSampler(nil), d.samplers...)
}

// StateObjects returns every state object created so far, in creation order.
func (d *NullDevice) StateObjects() []*NullStateObject {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*NullStateObject(nil), d.stateObjects...)
}

// Constants returns every constant payload uploaded so far, in upload order.
func (d *NullDevice) Constants() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]byte(nil), d.constants...)
}

// Desc returns the description the buffer was created with.
func (b *NullBuffer) Desc() BufferDesc {
	return b.desc
}

// Data returns the buffer's initial data.
func (b *NullBuffer) Data() []byte {
	return b.desc.Data
}

// Released reports whether Release was called.
func (b *NullBuffer) Released() bool {
	return b.released
}

func (b *NullBuffer) Label() string {
	return b.desc.Label
}

func (b *NullBuffer) Size() uint64 {
	return b.desc.Size
}

func (b *NullBuffer) Release() {
	b.released = true
}

func (s *NullSampler) Desc() common.SamplerDesc {
	return s.desc
}

// Released reports whether Release was called.
func (s *NullSampler) Released() bool {
	return s.released
}

func (s *NullSampler) Release() {
	s.released = true
}

// Desc returns the description the state object was created with.
func (s *NullStateObject) Desc() StateObjectDesc {
	return s.desc
}

// MaximumInputRecords returns the values passed to SetMaximumInputRecords.
func (s *NullStateObject) MaximumInputRecords() (records, entrypoints uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxRecords, s.maxEntrypoints
}

// Released reports whether Release was called.
func (s *NullStateObject) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

func (s *NullStateObject) WorkGraphIndex(program string) (uint32, error) {
	if program != s.desc.ProgramName {
		return 0, fmt.Errorf("renderer: no work graph program %q", program)
	}
	return 0, nil
}

func (s *NullStateObject) SetMaximumInputRecords(graph uint32, records, entrypoints uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if graph != 0 {
		return fmt.Errorf("renderer: no work graph %d", graph)
	}
	s.maxRecords = records
	s.maxEntrypoints = entrypoints
	return nil
}

func (s *NullStateObject) MemoryRequirements(graph uint32) (MemoryRequirements, error) {
	if graph != 0 {
		return MemoryRequirements{}, fmt.Errorf("renderer: no work graph %d", graph)
	}
	return MemoryRequirements{MinSize: s.memSize, MaxSize: s.memSize, SizeGranularity: BackingMemoryAlignment}, nil
}

// EntrypointIndex resolves configured entry point names by position. Without configured names
// each distinct name is assigned the next index on first query.
func (s *NullStateObject) EntrypointIndex(graph uint32, name string) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if graph != 0 {
		return 0, fmt.Errorf("renderer: no work graph %d", graph)
	}
	for i, n := range s.entrypoints {
		if n == name {
			return uint32(i), nil
		}
	}
	if s.fixed {
		return 0, fmt.Errorf("renderer: no entry point %q", name)
	}
	s.entrypoints = append(s.entrypoints, name)
	return uint32(len(s.entrypoints) - 1), nil
}

func (s *NullStateObject) ProgramIdentifier(program string) (ProgramIdentifier, error) {
	if program != s.desc.ProgramName {
		return ProgramIdentifier{}, fmt.Errorf("renderer: no program %q", program)
	}
	return ProgramIdentifier{OpaqueData: [4]uint64{s.serial, 0, 0, 0}}, nil
}

func (s *NullStateObject) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
}
