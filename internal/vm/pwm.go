package vm

// pwm.go implements the two pulse-width-modulation output channels.

import (
	"fmt"
	"sync"
)

// PWMState is the configured mode of a PWM channel: disabled, or enabled with a nonzero period.
type PWMState struct {
	Enabled bool
	Period  uint8
}

func (s PWMState) String() string {
	if !s.Enabled {
		return "DISABLED"
	}

	return fmt.Sprintf("ENABLED(period:%d)", s.Period)
}

// NumPWMChannels is the number of PWM channels the machine exposes.
const NumPWMChannels = 2

type pwmChannel struct {
	state PWMState
	duty  uint8
}

// PWM is the two-channel pulse-width-modulation peripheral.
type PWM struct {
	mut      sync.Mutex
	channels [NumPWMChannels]pwmChannel
}

// NewPWM creates a PWM peripheral with every channel disabled.
func NewPWM() *PWM {
	return &PWM{}
}

func (*PWM) device() string { return "PWM(2CH)" }

// SetPeriod enables the channel with the given nonzero period, or disables it when period is zero.
func (p *PWM) SetPeriod(ch int, period uint8) {
	p.mut.Lock()
	defer p.mut.Unlock()

	if ch < 0 || ch >= NumPWMChannels {
		return
	}

	p.channels[ch].state = PWMState{Enabled: period != 0, Period: period}
}

// State returns a channel's current configuration.
func (p *PWM) State(ch int) PWMState {
	p.mut.Lock()
	defer p.mut.Unlock()

	if ch < 0 || ch >= NumPWMChannels {
		return PWMState{}
	}

	return p.channels[ch].state
}

// SetDuty sets a channel's duty cycle, regardless of whether it is enabled.
func (p *PWM) SetDuty(ch int, duty uint8) {
	p.mut.Lock()
	defer p.mut.Unlock()

	if ch < 0 || ch >= NumPWMChannels {
		return
	}

	p.channels[ch].duty = duty
}

// Duty returns a channel's duty cycle.
func (p *PWM) Duty(ch int) uint8 {
	p.mut.Lock()
	defer p.mut.Unlock()

	if ch < 0 || ch >= NumPWMChannels {
		return 0
	}

	return p.channels[ch].duty
}

func (p *PWM) String() string {
	p.mut.Lock()
	defer p.mut.Unlock()

	return fmt.Sprintf("PWM(channels:%v)", p.channels)
}

// PWMDriver maps the two CR/DR address pairs onto the PWM peripheral.
type PWMDriver struct {
	handle DeviceHandle[*PWM, PWM]
	crAddr [NumPWMChannels]Word
	drAddr [NumPWMChannels]Word
}

// NewPWMDriver creates a driver for the given PWM peripheral.
func NewPWMDriver(p *PWM) *PWMDriver {
	return &PWMDriver{handle: *NewDeviceHandle(p)}
}

// Init wires up the paired addresses (CR0, DR0, CR1, DR1).
func (d *PWMDriver) Init(vm *LC3, addrs []Word) {
	for i := 0; i < NumPWMChannels; i++ {
		d.crAddr[i] = addrs[2*i]
		d.drAddr[i] = addrs[2*i+1]
	}

	d.handle.Init(vm, addrs)
}

func (d *PWMDriver) chanFor(addr Word) (int, bool, bool) {
	for i := 0; i < NumPWMChannels; i++ {
		if addr == d.crAddr[i] {
			return i, true, true
		} else if addr == d.drAddr[i] {
			return i, false, true
		}
	}

	return 0, false, false
}

// Read answers a load of a control or data register.
func (d *PWMDriver) Read(addr Word) (Word, error) {
	dev := d.handle.device

	ch, isCR, ok := d.chanFor(addr)
	if !ok {
		return 0, fmt.Errorf("pwm: %w: %s", ErrNoDevice, addr)
	}

	if isCR {
		return Word(dev.State(ch).Period), nil
	}

	return Word(dev.Duty(ch)), nil
}

// Write answers a store to a control or data register.
func (d *PWMDriver) Write(addr Word, value Register) error {
	dev := d.handle.device

	ch, isCR, ok := d.chanFor(addr)
	if !ok {
		return fmt.Errorf("pwm: %w: %s", ErrNoDevice, addr)
	}

	if isCR {
		dev.SetPeriod(ch, uint8(value))
	} else {
		dev.SetDuty(ch, uint8(value))
	}

	return nil
}

// ChannelState reports a channel's current configuration, for callers holding only the driver.
func (d *PWMDriver) ChannelState(ch int) PWMState {
	if d.handle.device == nil {
		return PWMState{}
	}

	return d.handle.device.State(ch)
}

// ChannelDuty reports a channel's duty cycle, for callers holding only the driver.
func (d *PWMDriver) ChannelDuty(ch int) uint8 {
	if d.handle.device == nil {
		return 0
	}

	return d.handle.device.Duty(ch)
}

// InterruptRequested is always false: PWM channels never interrupt the CPU.
func (d *PWMDriver) InterruptRequested() bool { return false }

func (d *PWMDriver) String() string {
	if d.handle.device != nil {
		return fmt.Sprintf("PWMDriver(%s)", d.handle.device)
	}

	return "PWMDriver(pwm:nil)"
}

func (d *PWMDriver) device() string {
	if d.handle.device != nil {
		return d.handle.device.device()
	}

	return "PWM(DRIVER)"
}
