package renderer

// NullDeviceOption is a functional option applied to a NullDevice during construction via NewNullDevice.
type NullDeviceOption func(*NullDevice)

// WGPUDeviceOption is a functional option applied to a wgpu device during construction via NewWGPUDevice.
type WGPUDeviceOption func(*wgpuDevice)

// WithWorkGraphsTier sets the tier the null device reports.
//
// Parameters:
//   - tier: the reported tier
//   - err: an optional error returned by the feature query
//
// Returns:
//   - NullDeviceOption: a function that applies the tier option to a device
func WithWorkGraphsTier(tier WorkGraphsTier, err error) NullDeviceOption {
	return func(d *NullDevice) {
		d.tier = tier
		d.tierErr = err
	}
}

// WithStateObjectError makes every CreateStateObject call fail with err.
//
// Parameters:
//   - err: the error to return
//
// Returns:
//   - NullDeviceOption: a function that applies the failure option to a device
func WithStateObjectError(err error) NullDeviceOption {
	return func(d *NullDevice) {
		d.stateObjectErr = err
	}
}

// WithBufferError makes every CreateBuffer call fail with err.
//
// Parameters:
//   - err: the error to return
//
// Returns:
//   - NullDeviceOption: a function that applies the failure option to a device
func WithBufferError(err error) NullDeviceOption {
	return func(d *NullDevice) {
		d.bufferErr = err
	}
}

// WithBackingMemorySize sets the backing memory size state objects report. Zero means the graph
// needs no backing memory.
//
// Parameters:
//   - size: the size in bytes
//
// Returns:
//   - NullDeviceOption: a function that applies the size option to a device
func WithBackingMemorySize(size uint64) NullDeviceOption {
	return func(d *NullDevice) {
		d.backingMemorySize = size
	}
}

// WithEntrypoints fixes the entry point names state objects resolve, in index order. Names not in
// the list fail to resolve.
//
// Parameters:
//   - names: the entry point names
//
// Returns:
//   - NullDeviceOption: a function that applies the entry point option to a device
func WithEntrypoints(names ...string) NullDeviceOption {
	return func(d *NullDevice) {
		d.entrypoints = append([]string(nil), names...)
	}
}

// WithGraphDriver attaches native execution graph support to a wgpu device.
//
// Parameters:
//   - driver: the graph driver
//
// Returns:
//   - WGPUDeviceOption: a function that applies the driver option to a device
func WithGraphDriver(driver GraphDriver) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		d.driver = driver
	}
}
