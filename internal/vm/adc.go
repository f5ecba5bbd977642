package vm

// adc.go implements the four analog-to-digital converter channels.

import (
	"errors"
	"fmt"
	"sync"
)

// ADCState is the configured mode of an ADC pin.
type ADCState uint8

const (
	ADCDisabled ADCState = iota
	ADCEnabled
)

func (s ADCState) String() string {
	if s == ADCEnabled {
		return "ENABLED"
	}

	return "DISABLED"
}

// NumADCPins is the number of ADC channels the machine exposes.
const NumADCPins = 4

var (
	errADC = errors.New("adc")

	// ErrInvalidADCRead is returned reading a disabled ADC pin.
	ErrInvalidADCRead = fmt.Errorf("%w: invalid read", errADC)

	// ErrADCMisc is returned for channel indices outside the configured range.
	ErrADCMisc = fmt.Errorf("%w: misc", errADC)
)

type adcPin struct {
	state ADCState
	value uint8
}

// ADC is the four-channel analog input peripheral.
type ADC struct {
	mut  sync.Mutex
	pins [NumADCPins]adcPin
}

// NewADC creates an ADC peripheral with every channel disabled.
func NewADC() *ADC {
	return &ADC{}
}

func (*ADC) device() string { return "ADC(4CH)" }

// SetState reconfigures a channel.
func (a *ADC) SetState(pin int, state ADCState) error {
	a.mut.Lock()
	defer a.mut.Unlock()

	if pin < 0 || pin >= NumADCPins {
		return fmt.Errorf("%w: pin: %d", ErrADCMisc, pin)
	}

	a.pins[pin].state = state

	return nil
}

// State returns a channel's current configuration.
func (a *ADC) State(pin int) ADCState {
	a.mut.Lock()
	defer a.mut.Unlock()

	if pin < 0 || pin >= NumADCPins {
		return ADCDisabled
	}

	return a.pins[pin].state
}

// SetSample records the analog sample a channel will next report.
func (a *ADC) SetSample(pin int, sample uint8) {
	a.mut.Lock()
	defer a.mut.Unlock()

	if pin < 0 || pin >= NumADCPins {
		return
	}

	a.pins[pin].value = sample
}

// Read returns a channel's last sampled value. Only Enabled channels may be read.
func (a *ADC) Read(pin int) (uint8, error) {
	a.mut.Lock()
	defer a.mut.Unlock()

	if pin < 0 || pin >= NumADCPins {
		return 0, fmt.Errorf("%w: pin: %d", ErrADCMisc, pin)
	}

	p := a.pins[pin]
	if p.state != ADCEnabled {
		return 0, fmt.Errorf("%w: pin: %d: %s", ErrInvalidADCRead, pin, p.state)
	}

	return p.value, nil
}

func (a *ADC) String() string {
	a.mut.Lock()
	defer a.mut.Unlock()

	return fmt.Sprintf("ADC(pins:%v)", a.pins)
}

// ADCDriver maps the four CR/DR address pairs onto the ADC peripheral.
type ADCDriver struct {
	handle DeviceHandle[*ADC, ADC]
	crAddr [NumADCPins]Word
	drAddr [NumADCPins]Word
}

// NewADCDriver creates a driver for the given ADC peripheral.
func NewADCDriver(a *ADC) *ADCDriver {
	return &ADCDriver{handle: *NewDeviceHandle(a)}
}

// Init wires up the paired addresses (CR0, DR0, CR1, DR1, ...).
func (d *ADCDriver) Init(vm *LC3, addrs []Word) {
	for i := 0; i < NumADCPins; i++ {
		d.crAddr[i] = addrs[2*i]
		d.drAddr[i] = addrs[2*i+1]
	}

	d.handle.Init(vm, addrs)
}

func (d *ADCDriver) pinFor(addr Word) (int, bool, bool) {
	for i := 0; i < NumADCPins; i++ {
		if addr == d.crAddr[i] {
			return i, true, true
		} else if addr == d.drAddr[i] {
			return i, false, true
		}
	}

	return 0, false, false
}

// Read answers a load of a control or data register.
func (d *ADCDriver) Read(addr Word) (Word, error) {
	dev := d.handle.device

	pin, isCR, ok := d.pinFor(addr)
	if !ok {
		return 0, fmt.Errorf("adc: %w: %s", ErrNoDevice, addr)
	}

	if isCR {
		return Word(dev.State(pin)), nil
	}

	val, err := dev.Read(pin)
	if err != nil {
		return 0, fmt.Errorf("adc: %w", err)
	}

	return Word(val), nil
}

// Write answers a store to a control register; the data register is read-only.
func (d *ADCDriver) Write(addr Word, value Register) error {
	dev := d.handle.device

	pin, isCR, ok := d.pinFor(addr)
	if !ok {
		return fmt.Errorf("adc: %w: %s", ErrNoDevice, addr)
	}

	if !isCR {
		return nil // Writing the data register is ignored; it mirrors a sampled reading.
	}

	return dev.SetState(pin, ADCState(value&0x1))
}

// ChannelState reports a channel's current configuration, for callers holding only the driver.
func (d *ADCDriver) ChannelState(pin int) ADCState {
	if d.handle.device == nil {
		return ADCDisabled
	}

	return d.handle.device.State(pin)
}

// ChannelRead reports a channel's last sampled value, for callers holding only the driver.
func (d *ADCDriver) ChannelRead(pin int) (uint8, error) {
	if d.handle.device == nil {
		return 0, fmt.Errorf("adc: %w: pin: %d", ErrADCMisc, pin)
	}

	return d.handle.device.Read(pin)
}

// InterruptRequested is always false: the ADC never interrupts the CPU.
func (d *ADCDriver) InterruptRequested() bool { return false }

func (d *ADCDriver) String() string {
	if d.handle.device != nil {
		return fmt.Sprintf("ADCDriver(%s)", d.handle.device)
	}

	return "ADCDriver(adc:nil)"
}

func (d *ADCDriver) device() string {
	if d.handle.device != nil {
		return d.handle.device.device()
	}

	return "ADC(DRIVER)"
}
