package vm

// timer.go implements the two millisecond interval timers. Timers do not run against a real wall
// clock; they advance only when the interpreter calls Tick, keeping simulated programs
// deterministic under test.

import (
	"fmt"
	"sync"
)

// TimerState is the configured mode of a timer.
type TimerState uint8

const (
	TimerDisabled TimerState = iota
	TimerSingleShot
	TimerRepeated
)

func (s TimerState) String() string {
	switch s {
	case TimerSingleShot:
		return "SINGLE_SHOT"
	case TimerRepeated:
		return "REPEATED"
	default:
		return "DISABLED"
	}
}

// NumTimers is the number of interval timers the machine exposes.
const NumTimers = 2

type timerChannel struct {
	state    TimerState
	period   Word
	elapsed  Word
	enabled  bool
	occurred bool
}

// Timers is the two-channel interval timer peripheral.
type Timers struct {
	mut      sync.Mutex
	channels [NumTimers]timerChannel
}

// NewTimers creates a timer peripheral with both channels disabled.
func NewTimers() *Timers {
	return &Timers{}
}

func (*Timers) device() string { return "TIMERS(2CH)" }

// SetState reconfigures a timer. Reconfiguring resets its elapsed counter and occurred flag.
func (t *Timers) SetState(ch int, state TimerState) {
	t.mut.Lock()
	defer t.mut.Unlock()

	if ch < 0 || ch >= NumTimers {
		return
	}

	c := &t.channels[ch]
	c.state = state
	c.elapsed = 0
	c.occurred = false
}

// State returns a timer's current configuration.
func (t *Timers) State(ch int) TimerState {
	t.mut.Lock()
	defer t.mut.Unlock()

	if ch < 0 || ch >= NumTimers {
		return TimerDisabled
	}

	return t.channels[ch].state
}

// SetPeriod sets a timer's period, in milliseconds.
func (t *Timers) SetPeriod(ch int, period Word) {
	t.mut.Lock()
	defer t.mut.Unlock()

	if ch < 0 || ch >= NumTimers {
		return
	}

	t.channels[ch].period = period
}

// Period returns a timer's period, in milliseconds.
func (t *Timers) Period(ch int) Word {
	t.mut.Lock()
	defer t.mut.Unlock()

	if ch < 0 || ch >= NumTimers {
		return 0
	}

	return t.channels[ch].period
}

// Tick advances every timer by elapsed milliseconds, latching the occurred flag for any timer that
// completes its period. A Repeated timer rearms automatically; a SingleShot timer disables itself.
func (t *Timers) Tick(elapsed Word) {
	t.mut.Lock()
	defer t.mut.Unlock()

	for i := range t.channels {
		c := &t.channels[i]
		if c.state == TimerDisabled || c.period == 0 {
			continue
		}

		c.elapsed += elapsed
		if c.elapsed < c.period {
			continue
		}

		c.occurred = true
		c.elapsed = 0

		if c.state == TimerSingleShot {
			c.state = TimerDisabled
		}
	}
}

// SetInterruptEnableBit enables or disables interrupt delivery for a timer.
func (t *Timers) SetInterruptEnableBit(ch int, enable bool) {
	t.mut.Lock()
	defer t.mut.Unlock()

	if ch < 0 || ch >= NumTimers {
		return
	}

	t.channels[ch].enabled = enable
}

// InterruptsEnabled reports whether interrupt delivery is enabled for a timer.
func (t *Timers) InterruptsEnabled(ch int) bool {
	t.mut.Lock()
	defer t.mut.Unlock()

	if ch < 0 || ch >= NumTimers {
		return false
	}

	return t.channels[ch].enabled
}

// InterruptOccurred reports whether a timer's interrupt flag is latched.
func (t *Timers) InterruptOccurred(ch int) bool {
	t.mut.Lock()
	defer t.mut.Unlock()

	if ch < 0 || ch >= NumTimers {
		return false
	}

	return t.channels[ch].occurred
}

// ResetInterruptFlag clears a timer's latched interrupt flag.
func (t *Timers) ResetInterruptFlag(ch int) {
	t.mut.Lock()
	defer t.mut.Unlock()

	if ch < 0 || ch >= NumTimers {
		return
	}

	t.channels[ch].occurred = false
}

func (t *Timers) String() string {
	t.mut.Lock()
	defer t.mut.Unlock()

	return fmt.Sprintf("Timers(channels:%v)", t.channels)
}

// TimerDriver maps the two CR/DR address pairs onto the timer peripheral.
type TimerDriver struct {
	handle DeviceHandle[*Timers, Timers]
	crAddr [NumTimers]Word
	drAddr [NumTimers]Word
}

// NewTimerDriver creates a driver for the given timer peripheral.
func NewTimerDriver(t *Timers) *TimerDriver {
	return &TimerDriver{handle: *NewDeviceHandle(t)}
}

// Init wires up the paired addresses (CR0, DR0, CR1, DR1).
func (d *TimerDriver) Init(vm *LC3, addrs []Word) {
	for i := 0; i < NumTimers; i++ {
		d.crAddr[i] = addrs[2*i]
		d.drAddr[i] = addrs[2*i+1]
	}

	d.handle.Init(vm, addrs)
}

func (d *TimerDriver) chanFor(addr Word) (int, bool, bool) {
	for i := 0; i < NumTimers; i++ {
		if addr == d.crAddr[i] {
			return i, true, true
		} else if addr == d.drAddr[i] {
			return i, false, true
		}
	}

	return 0, false, false
}

// Read answers a load of a control or period register.
func (d *TimerDriver) Read(addr Word) (Word, error) {
	dev := d.handle.device

	ch, isCR, ok := d.chanFor(addr)
	if !ok {
		return 0, fmt.Errorf("timer: %w: %s", ErrNoDevice, addr)
	}

	if isCR {
		cr := Word(dev.State(ch))
		if dev.InterruptsEnabled(ch) {
			cr |= 1 << 2
		}

		return cr, nil
	}

	return dev.Period(ch), nil
}

// Write answers a store to a control or period register.
func (d *TimerDriver) Write(addr Word, value Register) error {
	dev := d.handle.device

	ch, isCR, ok := d.chanFor(addr)
	if !ok {
		return fmt.Errorf("timer: %w: %s", ErrNoDevice, addr)
	}

	if isCR {
		dev.SetInterruptEnableBit(ch, value&(1<<2) != 0)
		dev.SetState(ch, TimerState(value&0x3))
	} else {
		dev.SetPeriod(ch, Word(value))
	}

	return nil
}

// ChannelState reports a timer's current configuration, for callers holding only the driver.
func (d *TimerDriver) ChannelState(ch int) TimerState {
	if d.handle.device == nil {
		return TimerDisabled
	}

	return d.handle.device.State(ch)
}

// ChannelPeriod reports a timer's period, in milliseconds, for callers holding only the driver.
func (d *TimerDriver) ChannelPeriod(ch int) Word {
	if d.handle.device == nil {
		return 0
	}

	return d.handle.device.Period(ch)
}

// InterruptRequested reports whether any timer is enabled and has a latched flag.
func (d *TimerDriver) InterruptRequested() bool {
	dev := d.handle.device
	if dev == nil {
		return false
	}

	for i := 0; i < NumTimers; i++ {
		if dev.InterruptsEnabled(i) && dev.InterruptOccurred(i) {
			return true
		}
	}

	return false
}

func (d *TimerDriver) String() string {
	if d.handle.device != nil {
		return fmt.Sprintf("TimerDriver(%s)", d.handle.device)
	}

	return "TimerDriver(timers:nil)"
}

func (d *TimerDriver) device() string {
	if d.handle.device != nil {
		return d.handle.device.device()
	}

	return "TIMERS(DRIVER)"
}
