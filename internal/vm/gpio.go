package vm

// gpio.go implements the eight general-purpose digital I/O pins and their memory-mapped register
// dispatch, following the same device/driver split as kbd.go and disp.go.

import (
	"errors"
	"fmt"
	"sync"
)

// GPIOState is the configured mode of a GPIO pin.
type GPIOState uint8

// Pin configuration states. Only Interrupt additionally permits reads; Disabled permits neither.
const (
	GPIODisabled GPIOState = iota
	GPIOOutput
	GPIOInput
	GPIOInterrupt
)

func (s GPIOState) String() string {
	switch s {
	case GPIODisabled:
		return "DISABLED"
	case GPIOOutput:
		return "OUTPUT"
	case GPIOInput:
		return "INPUT"
	case GPIOInterrupt:
		return "INTERRUPT"
	default:
		return "UNKNOWN"
	}
}

// NumGPIOPins is the number of GPIO pins the machine exposes.
const NumGPIOPins = 8

var (
	errGPIO = errors.New("gpio")

	// ErrInvalidGPIORead is returned reading a pin not configured for input or interrupt.
	ErrInvalidGPIORead = fmt.Errorf("%w: invalid read", errGPIO)

	// ErrInvalidGPIOWrite is returned writing a pin not configured for output.
	ErrInvalidGPIOWrite = fmt.Errorf("%w: invalid write", errGPIO)

	// ErrGPIOMisc is returned for pin indices outside the configured range.
	ErrGPIOMisc = fmt.Errorf("%w: misc", errGPIO)
)

type gpioPin struct {
	state    GPIOState
	value    bool
	enabled  bool
	occurred bool
}

// GPIO is the eight-pin digital I/O peripheral.
type GPIO struct {
	mut  sync.Mutex
	pins [NumGPIOPins]gpioPin
}

// NewGPIO creates a GPIO peripheral with every pin disabled.
func NewGPIO() *GPIO {
	return &GPIO{}
}

func (*GPIO) device() string { return "GPIO(8PIN)" }

// SetState reconfigures a pin. Reconfiguring clears the pin's value and interrupt-occurred flag.
func (g *GPIO) SetState(pin int, state GPIOState) error {
	g.mut.Lock()
	defer g.mut.Unlock()

	if pin < 0 || pin >= NumGPIOPins {
		return fmt.Errorf("%w: pin: %d", ErrGPIOMisc, pin)
	}

	g.pins[pin] = gpioPin{state: state}

	return nil
}

// State returns a pin's current configuration.
func (g *GPIO) State(pin int) GPIOState {
	g.mut.Lock()
	defer g.mut.Unlock()

	if pin < 0 || pin >= NumGPIOPins {
		return GPIODisabled
	}

	return g.pins[pin].state
}

// Read returns a pin's value. Only Input and Interrupt pins may be read.
func (g *GPIO) Read(pin int) (bool, error) {
	g.mut.Lock()
	defer g.mut.Unlock()

	if pin < 0 || pin >= NumGPIOPins {
		return false, fmt.Errorf("%w: pin: %d", ErrGPIOMisc, pin)
	}

	p := g.pins[pin]
	if p.state != GPIOInput && p.state != GPIOInterrupt {
		return false, fmt.Errorf("%w: pin: %d: %s", ErrInvalidGPIORead, pin, p.state)
	}

	return p.value, nil
}

// Write sets a pin's value. Only Output pins may be written.
func (g *GPIO) Write(pin int, value bool) error {
	g.mut.Lock()
	defer g.mut.Unlock()

	if pin < 0 || pin >= NumGPIOPins {
		return fmt.Errorf("%w: pin: %d", ErrGPIOMisc, pin)
	}

	p := &g.pins[pin]
	if p.state != GPIOOutput {
		return fmt.Errorf("%w: pin: %d: %s", ErrInvalidGPIOWrite, pin, p.state)
	}

	p.value = value

	return nil
}

// SetExternal simulates an external signal transition on an Interrupt-mode pin, latching the
// interrupt-occurred flag. It is a no-op on pins not configured for interrupts.
func (g *GPIO) SetExternal(pin int, value bool) {
	g.mut.Lock()
	defer g.mut.Unlock()

	if pin < 0 || pin >= NumGPIOPins {
		return
	}

	p := &g.pins[pin]
	if p.state != GPIOInterrupt {
		return
	}

	p.value = value
	p.occurred = true
}

// SetInterruptEnableBit enables or disables interrupt delivery for a pin.
func (g *GPIO) SetInterruptEnableBit(pin int, enable bool) {
	g.mut.Lock()
	defer g.mut.Unlock()

	if pin < 0 || pin >= NumGPIOPins {
		return
	}

	g.pins[pin].enabled = enable
}

// InterruptsEnabled reports whether interrupt delivery is enabled for a pin.
func (g *GPIO) InterruptsEnabled(pin int) bool {
	g.mut.Lock()
	defer g.mut.Unlock()

	if pin < 0 || pin >= NumGPIOPins {
		return false
	}

	return g.pins[pin].enabled
}

// InterruptOccurred reports whether a pin's interrupt flag is latched.
func (g *GPIO) InterruptOccurred(pin int) bool {
	g.mut.Lock()
	defer g.mut.Unlock()

	if pin < 0 || pin >= NumGPIOPins {
		return false
	}

	return g.pins[pin].occurred
}

// ResetInterruptFlag clears a pin's latched interrupt flag.
func (g *GPIO) ResetInterruptFlag(pin int) {
	g.mut.Lock()
	defer g.mut.Unlock()

	if pin < 0 || pin >= NumGPIOPins {
		return
	}

	g.pins[pin].occurred = false
}

func (g *GPIO) String() string {
	g.mut.Lock()
	defer g.mut.Unlock()

	return fmt.Sprintf("GPIO(pins:%v)", g.pins)
}

// GPIODriver maps the sixteen per-pin registers plus the aggregate data register onto the GPIO
// peripheral.
type GPIODriver struct {
	handle DeviceHandle[*GPIO, GPIO]
	crAddr [NumGPIOPins]Word
	drAddr [NumGPIOPins]Word
	aggAddr Word
}

// NewGPIODriver creates a driver for the given GPIO peripheral.
func NewGPIODriver(g *GPIO) *GPIODriver {
	return &GPIODriver{handle: *NewDeviceHandle(g)}
}

// Init wires up the sixteen paired addresses (CR0, DR0, CR1, DR1, ...) followed by the aggregate
// data register address.
func (d *GPIODriver) Init(vm *LC3, addrs []Word) {
	for i := 0; i < NumGPIOPins; i++ {
		d.crAddr[i] = addrs[2*i]
		d.drAddr[i] = addrs[2*i+1]
	}

	d.aggAddr = addrs[2*NumGPIOPins]
	d.handle.Init(vm, addrs)
}

func (d *GPIODriver) pinFor(addr Word) (int, bool, bool) {
	for i := 0; i < NumGPIOPins; i++ {
		if addr == d.crAddr[i] {
			return i, true, true
		} else if addr == d.drAddr[i] {
			return i, false, true
		}
	}

	return 0, false, false
}

// Read answers a load of a control, data, or aggregate-data register.
func (d *GPIODriver) Read(addr Word) (Word, error) {
	dev := d.handle.device

	if addr == d.aggAddr {
		var agg Word

		for i := 0; i < NumGPIOPins; i++ {
			val, err := dev.Read(i)
			if err == nil && val {
				agg |= 1 << i
			} else if err != nil {
				agg |= 1 << 15
			}
		}

		return agg, nil
	}

	pin, isCR, ok := d.pinFor(addr)
	if !ok {
		return 0, fmt.Errorf("gpio: %w: %s", ErrNoDevice, addr)
	}

	if isCR {
		var cr Word

		cr = Word(dev.State(pin))
		if dev.InterruptsEnabled(pin) {
			cr |= 1 << 2
		}

		return cr, nil
	}

	val, err := dev.Read(pin)
	if err != nil {
		return 0, fmt.Errorf("gpio: %w", err)
	}

	if val {
		return 1, nil
	}

	return 0, nil
}

// Write answers a store to a control, data, or aggregate-data register.
func (d *GPIODriver) Write(addr Word, value Register) error {
	dev := d.handle.device

	if addr == d.aggAddr {
		for i := 0; i < NumGPIOPins; i++ {
			_ = dev.Write(i, value&(1<<i) != 0)
		}

		return nil
	}

	pin, isCR, ok := d.pinFor(addr)
	if !ok {
		return fmt.Errorf("gpio: %w: %s", ErrNoDevice, addr)
	}

	if isCR {
		if err := dev.SetState(pin, GPIOState(value&0x3)); err != nil {
			return err
		}

		dev.SetInterruptEnableBit(pin, value&(1<<2) != 0)

		return nil
	}

	return dev.Write(pin, value&1 != 0)
}

// PinState reports a pin's current configuration, for callers holding only the driver.
func (d *GPIODriver) PinState(pin int) GPIOState {
	if d.handle.device == nil {
		return GPIODisabled
	}

	return d.handle.device.State(pin)
}

// PinRead reports a pin's value, for callers holding only the driver.
func (d *GPIODriver) PinRead(pin int) (bool, error) {
	if d.handle.device == nil {
		return false, fmt.Errorf("gpio: %w: pin: %d", ErrGPIOMisc, pin)
	}

	return d.handle.device.Read(pin)
}

// InterruptRequested reports whether any interrupt-mode pin is enabled and has a latched flag.
func (d *GPIODriver) InterruptRequested() bool {
	dev := d.handle.device
	if dev == nil {
		return false
	}

	for i := 0; i < NumGPIOPins; i++ {
		if dev.InterruptsEnabled(i) && dev.InterruptOccurred(i) {
			return true
		}
	}

	return false
}

func (d *GPIODriver) String() string {
	if d.handle.device != nil {
		return fmt.Sprintf("GPIODriver(%s)", d.handle.device)
	}

	return "GPIODriver(gpio:nil)"
}

func (d *GPIODriver) device() string {
	if d.handle.device != nil {
		return d.handle.device.device()
	}

	return "GPIO(DRIVER)"
}
