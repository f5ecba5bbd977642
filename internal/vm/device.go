package vm

// device.go declares the contracts memory-mapped peripherals implement and a generic handle that
// binds a concrete device to the addresses it answers to.

import "fmt"

// Device identifies a memory-mapped peripheral for logging and diagnostics.
type Device interface {
	device() string
}

// RegisterDevice is a device whose entire state is a single 16-bit register, addressable with a
// single Get/Put pair. Status and control registers (PSR, MCR, KBSR, DSR, ...) implement this.
type RegisterDevice interface {
	Get() Register
	Put(Register)
}

// ReadDriver is implemented by a device driver that answers loads at one or more addresses.
type ReadDriver interface {
	Read(addr Word) (Word, error)
}

// WriteDriver is implemented by a device driver that answers stores at one or more addresses.
type WriteDriver interface {
	Write(addr Word, val Register) error
}

// Driver is a device that may request service from the interrupt controller.
type Driver interface {
	fmt.Stringer
	InterruptRequested() bool
}

// DeviceHandle binds a concrete device to the machine and the addresses it was mapped at. It is
// embedded by drivers so that Init only needs to be written once per driver shape.
type DeviceHandle[T ~*D, D any] struct {
	device T
	addrs  []Word
}

// NewDeviceHandle wraps a device so a driver can configure it during initialization.
func NewDeviceHandle[T ~*D, D any](device T) *DeviceHandle[T, D] {
	return &DeviceHandle[T, D]{device: device}
}

// Init records the addresses the owning driver was mapped at. Devices that need per-address setup
// should look at h.addrs in their own Init method instead of overriding this one.
func (h *DeviceHandle[T, D]) Init(_ *LC3, addrs []Word) {
	h.addrs = addrs
}
