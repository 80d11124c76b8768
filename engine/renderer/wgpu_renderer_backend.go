package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-ivy/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// constantRingSize is the size of the ring the wgpu device sub-allocates per-frame constants from.
const constantRingSize = 64 * 1024

// constantAlignment is the minimum uniform buffer offset alignment WebGPU guarantees.
const constantAlignment = 256

// ErrWorkGraphsUnsupported is returned by state object creation on a device without a GraphDriver.
var ErrWorkGraphsUnsupported = errors.New("renderer: execution graphs are not supported by this device")

// GraphDriver is a native extension that gives a wgpu device execution graph support.
// WebGPU itself has no execution graph API; hosts running on a native backend that does
// attach a driver through WithGraphDriver.
type GraphDriver interface {
	// WorkGraphsTier reports the tier the native device supports.
	WorkGraphsTier() WorkGraphsTier
	// CreateStateObject finalizes a program on the native device backing d.
	CreateStateObject(d *wgpu.Device, desc StateObjectDesc) (StateObject, error)
}

// wgpuDevice is the wgpu implementation of the Device interface.
type wgpuDevice struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue
	driver GraphDriver

	ring     *wgpuBuffer
	ringHead uint64
}

var _ Device = &wgpuDevice{}

// wgpuBuffer is the wgpu implementation of the Buffer interface.
type wgpuBuffer struct {
	buf   *wgpu.Buffer
	label string
	size  uint64
}

var _ Buffer = &wgpuBuffer{}

// wgpuSampler is the wgpu implementation of the Sampler interface.
type wgpuSampler struct {
	sampler *wgpu.Sampler
	desc    common.SamplerDesc
}

var _ Sampler = &wgpuSampler{}

// NewWGPUDevice wraps an initialized wgpu device.
//
// Parameters:
//   - device: the wgpu device, which must not be nil
//   - options: device options such as WithGraphDriver
//
// Returns:
//   - Device: the device
func NewWGPUDevice(device *wgpu.Device, options ...WGPUDeviceOption) Device {
	if device == nil {
		panic("renderer: wgpu device cannot be nil")
	}
	d := &wgpuDevice{
		mu:     &sync.Mutex{},
		device: device,
		queue:  device.GetQueue(),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// Native returns the underlying wgpu buffer of a Buffer created by a wgpu device, or nil.
//
// Parameters:
//   - b: the buffer
//
// Returns:
//   - *wgpu.Buffer: the native buffer
func Native(b Buffer) *wgpu.Buffer {
	if wb, ok := b.(*wgpuBuffer); ok {
		return wb.buf
	}
	return nil
}

func (d *wgpuDevice) WorkGraphsTier() (WorkGraphsTier, error) {
	if d.driver == nil {
		return WorkGraphsNotSupported, nil
	}
	return d.driver.WorkGraphsTier(), nil
}

func (d *wgpuDevice) CreateStateObject(desc StateObjectDesc) (StateObject, error) {
	if d.driver == nil {
		return nil, ErrWorkGraphsUnsupported
	}
	return d.driver.CreateStateObject(d.device, desc)
}

func (d *wgpuDevice) CreateBuffer(desc BufferDesc) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.createBuffer(desc)
}

func (d *wgpuDevice) createBuffer(desc BufferDesc) (*wgpuBuffer, error) {
	if uint64(len(desc.Data)) > desc.Size {
		return nil, fmt.Errorf("renderer: %d bytes of initial data exceed buffer %q of %d bytes", len(desc.Data), desc.Label, desc.Size)
	}
	// wgpu places every buffer at an offset aligned to at least constantAlignment
	if err := checkAlignment(desc, constantAlignment); err != nil {
		return nil, err
	}
	// queue writes must be a multiple of 4 bytes; the padding is not part of the reported size
	size := common.AlignUp(desc.Size, 4)
	usage := desc.Usage
	if len(desc.Data) > 0 {
		usage |= wgpu.BufferUsageCopyDst
	}
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            desc.Label,
		Size:             size,
		Usage:            usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: creating buffer %q: %w", desc.Label, err)
	}
	if len(desc.Data) > 0 {
		data := desc.Data
		if rem := len(data) % 4; rem != 0 {
			data = append(append([]byte(nil), data...), make([]byte, 4-rem)...)
		}
		d.queue.WriteBuffer(buf, 0, data)
	}
	return &wgpuBuffer{buf: buf, label: desc.Label, size: desc.Size}, nil
}

func (d *wgpuDevice) CreateSampler(desc common.SamplerDesc) (Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	samp, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Ivy Bindless Sampler",
		AddressModeU:  common.Coalesce(desc.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(desc.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(desc.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(desc.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(desc.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(desc.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   desc.LodMinClamp,
		LodMaxClamp:   common.Coalesce(desc.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(desc.MaxAnisotropy, 1),
		Compare:       desc.Compare,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: creating sampler: %w", err)
	}
	return &wgpuSampler{sampler: samp, desc: desc}, nil
}

func (d *wgpuDevice) AllocConstantBuffer(data []byte) (BufferAddress, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	size := common.AlignUp(uint64(len(data)), constantAlignment)
	if size > constantRingSize {
		return BufferAddress{}, fmt.Errorf("renderer: %d byte constant payload exceeds the %d byte ring", len(data), constantRingSize)
	}
	if d.ring == nil {
		ring, err := d.createBuffer(BufferDesc{
			Label: "Ivy Constant Ring",
			Size:  constantRingSize,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return BufferAddress{}, err
		}
		d.ring = ring
	}
	if d.ringHead+size > constantRingSize {
		d.ringHead = 0
	}
	offset := d.ringHead
	d.ringHead += size

	payload := data
	if rem := len(payload) % 4; rem != 0 {
		payload = append(append([]byte(nil), payload...), make([]byte, 4-rem)...)
	}
	d.queue.WriteBuffer(d.ring.buf, offset, payload)
	return BufferAddress{Buffer: d.ring, Offset: offset, Size: uint64(len(data))}, nil
}

func (b *wgpuBuffer) Label() string {
	return b.label
}

func (b *wgpuBuffer) Size() uint64 {
	return b.size
}

func (b *wgpuBuffer) Release() {
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}

func (s *wgpuSampler) Desc() common.SamplerDesc {
	return s.desc
}

func (s *wgpuSampler) Release() {
	if s.sampler != nil {
		s.sampler.Release()
		s.sampler = nil
	}
}
