package control

// control.go is the unified façade over the interpreter, the Load API, breakpoints/watchpoints and
// the event-future machinery: every operation a remote debugger needs, gathered behind one
// interface so the RPC layer (internal/rpc) has exactly one thing to proxy.

import (
	"sync"

	"github.com/sixteen-systems/lc3vm/internal/vm"
)

// State is the coarse run state the control surface reports through GetState.
type State int

// Machine run states.
const (
	StateRunning State = iota
	StatePaused
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StatePaused:
		return "PAUSED"
	case StateHalted:
		return "HALTED"
	default:
		return "UNKNOWN"
	}
}

// DeviceInfo identifies the simulated device to a connecting controller.
type DeviceInfo struct {
	ID      string
	Version string
}

// WatchEntry is one populated slot in the watchpoint table: the watched address and its last
// observed value.
type WatchEntry struct {
	Addr vm.Word
	Data vm.Word
}

// GPIOReading and ADCReading pair a peripheral reading with the error a disabled or misdirected
// pin produces, mirroring the distilled Result<value, ReadError> shape from the RPC messages.
type GPIOReading struct {
	Value bool
	Err   error
}

type ADCReading struct {
	Value uint8
	Err   error
}

// MaxBreakpoints and MaxWatchpoints re-export vm's bounds for callers that only import control.
const (
	MaxBreakpoints = vm.MaxBreakpoints
	MaxWatchpoints = vm.MaxWatchpoints
)

// Control is the single façade every debuggable operation is reached through: register/PC
// get+set, memory read/write, breakpoint/watchpoint CRUD, step/pause/reset, peripheral readings,
// the Load API, and the asynchronous run_until_event.
type Control interface {
	GetPC() vm.Word
	SetPC(vm.Word)
	GetRegister(vm.GPR) vm.Word
	SetRegister(vm.GPR, vm.Word)
	GetRegistersPSRAndPC() ([vm.NumGPR]vm.Word, vm.Word, vm.Word)

	ReadWord(vm.Word) vm.Word
	WriteWord(vm.Word, vm.Word)

	StartPageWrite(page uint8, checksum uint64) (PageToken, error)
	SendPageChunk(tok PageToken, offset uint8, chunk [ChunkWords]vm.Word) (PageToken, error)
	FinishPageWrite(PageToken) error

	SetBreakpoint(vm.Word) (int, error)
	UnsetBreakpoint(int) error
	GetBreakpoints() [MaxBreakpoints]*vm.Word
	GetMaxBreakpoints() int

	SetMemoryWatchpoint(vm.Word) (int, error)
	UnsetMemoryWatchpoint(int) error
	GetMemoryWatchpoints() [MaxWatchpoints]*WatchEntry
	GetMaxMemoryWatchpoints() int

	Tick()
	RunUntilEvent() *Future
	Step() (Event, bool)
	Pause()
	GetState() State
	Reset()
	GetError() error

	GetGPIOStates() [vm.NumGPIOPins]vm.GPIOState
	GetGPIOReadings() [vm.NumGPIOPins]GPIOReading
	GetADCStates() [vm.NumADCPins]vm.ADCState
	GetADCReadings() [vm.NumADCPins]ADCReading
	GetTimerStates() [vm.NumTimers]vm.TimerState
	GetTimerConfig() [vm.NumTimers]vm.Word
	GetPWMStates() [vm.NumPWMChannels]vm.PWMState
	GetPWMConfig() [vm.NumPWMChannels]uint8
	GetClock() vm.Word

	GetInfo() DeviceInfo
	SetProgramMetadata(vm.ProgramMetadata)
	ProgramMetadata() vm.ProgramMetadata
}

// lc3Control is the concrete Control implementor shared by in-process embedding and the RPC device
// loop (internal/rpc).
type lc3Control struct {
	mu sync.Mutex

	machine *vm.LC3
	session *LoadSession
	shared  *SharedState

	info DeviceInfo

	running bool // true while a run_until_event batch is actively being stepped toward
	paused  bool
	lastErr error
}

// NewLC3Control builds a Control façade over machine, backed by session for program loads.
func NewLC3Control(machine *vm.LC3, session *LoadSession, info DeviceInfo) Control {
	return &lc3Control{
		machine: machine,
		session: session,
		shared:  NewSharedState(),
		info:    info,
	}
}

func (c *lc3Control) GetPC() vm.Word { c.mu.Lock(); defer c.mu.Unlock(); return vm.Word(c.machine.PC) }

func (c *lc3Control) SetPC(addr vm.Word) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.machine.PC = vm.ProgramCounter(addr)
}

func (c *lc3Control) GetRegister(r vm.GPR) vm.Word {
	c.mu.Lock()
	defer c.mu.Unlock()

	return vm.Word(c.machine.REG[r])
}

func (c *lc3Control) SetRegister(r vm.GPR, data vm.Word) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.machine.REG[r] = vm.Register(data)
}

func (c *lc3Control) GetRegistersPSRAndPC() ([vm.NumGPR]vm.Word, vm.Word, vm.Word) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var regs [vm.NumGPR]vm.Word
	for i, v := range c.machine.REG {
		regs[i] = vm.Word(v)
	}

	return regs, vm.Word(c.machine.PSR), vm.Word(c.machine.PC)
}

func (c *lc3Control) ReadWord(addr vm.Word) vm.Word {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.machine.Mem.MAR = vm.Register(addr)
	if err := c.machine.Mem.Fetch(); err != nil {
		c.lastErr = err
		return 0
	}

	return vm.Word(c.machine.Mem.MDR)
}

func (c *lc3Control) WriteWord(addr, word vm.Word) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.machine.Mem.MAR = vm.Register(addr)
	c.machine.Mem.MDR = vm.Register(word)

	if err := c.machine.Mem.Store(); err != nil {
		c.lastErr = err
	}
}

func (c *lc3Control) StartPageWrite(page uint8, checksum uint64) (PageToken, error) {
	return c.session.StartPageWrite(page, checksum)
}

func (c *lc3Control) SendPageChunk(tok PageToken, offset uint8, chunk [ChunkWords]vm.Word) (PageToken, error) {
	return c.session.SendPageChunk(tok, offset, chunk)
}

func (c *lc3Control) FinishPageWrite(tok PageToken) error {
	return c.session.FinishPageWrite(tok)
}

func (c *lc3Control) SetBreakpoint(addr vm.Word) (int, error) {
	return c.machine.Debug.SetBreakpoint(addr)
}

func (c *lc3Control) UnsetBreakpoint(idx int) error {
	return c.machine.Debug.UnsetBreakpoint(idx)
}

func (c *lc3Control) GetBreakpoints() [MaxBreakpoints]*vm.Word {
	return c.machine.Debug.Breakpoints()
}

func (c *lc3Control) GetMaxBreakpoints() int { return MaxBreakpoints }

func (c *lc3Control) SetMemoryWatchpoint(addr vm.Word) (int, error) {
	return c.machine.Debug.SetWatchpoint(addr)
}

func (c *lc3Control) UnsetMemoryWatchpoint(idx int) error {
	return c.machine.Debug.UnsetWatchpoint(idx)
}

func (c *lc3Control) GetMemoryWatchpoints() [MaxWatchpoints]*WatchEntry {
	var out [MaxWatchpoints]*WatchEntry

	for i, w := range c.machine.Debug.Watchpoints() {
		if w != nil {
			out[i] = &WatchEntry{Addr: w.Addr, Data: w.Data()}
		}
	}

	return out
}

func (c *lc3Control) GetMaxMemoryWatchpoints() int { return MaxWatchpoints }

// stepToEvent runs one debugger-aware step, translating its outcome to a control.Event. A nil
// Event means "nothing terminal happened yet; keep stepping".
func (c *lc3Control) stepToEvent() Event {
	ev, err := c.machine.StepDebug()
	if err != nil {
		c.lastErr = err
		return EventError{Err: err}
	}

	switch {
	case ev.Halted:
		return EventHalted{}
	case ev.Breakpoint != nil:
		return EventBreakpoint{Addr: uint16(*ev.Breakpoint)}
	case ev.WatchAddr != nil:
		return EventMemoryWatch{Addr: uint16(*ev.WatchAddr), Data: uint16(ev.WatchData)}
	default:
		return nil
	}
}

// Tick advances the machine's millisecond-driven peripherals and, when a run_until_event batch is
// being pursued, steps the interpreter once toward its conclusion. Callers on either side of the
// RPC boundary must invoke this periodically for run_until_event to make progress.
func (c *lc3Control) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.machine.Tick(1)

	if c.paused {
		c.running = false
		c.paused = false
		c.shared.resolveAll(EventInterrupted{})

		return
	}

	if !c.running {
		return
	}

	if event := c.stepToEvent(); event != nil {
		c.running = false
		c.shared.resolveAll(event)
	}
}

// RunUntilEvent joins (or opens) a batch and marks the façade as actively stepping the interpreter
// on every subsequent Tick until an event occurs.
func (c *lc3Control) RunUntilEvent() *Future {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.running = true

	return c.shared.newFuture()
}

// Step runs exactly one instruction, reporting its event (if any) directly rather than through the
// future machinery.
func (c *lc3Control) Step() (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	event := c.stepToEvent()

	return event, event != nil
}

// Pause interrupts an in-flight run_until_event on the next Tick; it does not cancel the future,
// it resolves it with EventInterrupted.
func (c *lc3Control) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.paused = true
	}
}

func (c *lc3Control) GetState() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.machine.MCR.Running() {
		return StateHalted
	}

	if c.running {
		return StateRunning
	}

	return StatePaused
}

// Reset drops any pending futures before rolling memory back to its committed image, since the
// device is about to invalidate any in-flight run_until_event.
func (c *lc3Control) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.shared.Reset()
	c.running = false
	c.paused = false
	c.lastErr = nil
	c.machine.Mem.Reset()
}

func (c *lc3Control) GetError() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lastErr
}

func (c *lc3Control) GetGPIOStates() [vm.NumGPIOPins]vm.GPIOState {
	var out [vm.NumGPIOPins]vm.GPIOState

	if gpio := c.machine.GPIO; gpio != nil {
		for i := range out {
			out[i] = gpio.PinState(i)
		}
	}

	return out
}

func (c *lc3Control) GetGPIOReadings() [vm.NumGPIOPins]GPIOReading {
	var out [vm.NumGPIOPins]GPIOReading

	gpio := c.machine.GPIO
	if gpio == nil {
		return out
	}

	for i := range out {
		val, err := gpio.PinRead(i)
		out[i] = GPIOReading{Value: val, Err: err}
	}

	return out
}

func (c *lc3Control) GetADCStates() [vm.NumADCPins]vm.ADCState {
	var out [vm.NumADCPins]vm.ADCState

	if adc := c.machine.ADC; adc != nil {
		for i := range out {
			out[i] = adc.ChannelState(i)
		}
	}

	return out
}

func (c *lc3Control) GetADCReadings() [vm.NumADCPins]ADCReading {
	var out [vm.NumADCPins]ADCReading

	adc := c.machine.ADC
	if adc == nil {
		return out
	}

	for i := range out {
		val, err := adc.ChannelRead(i)
		out[i] = ADCReading{Value: val, Err: err}
	}

	return out
}

func (c *lc3Control) GetTimerStates() [vm.NumTimers]vm.TimerState {
	var out [vm.NumTimers]vm.TimerState

	if t := c.machine.Timers; t != nil {
		for i := range out {
			out[i] = t.ChannelState(i)
		}
	}

	return out
}

func (c *lc3Control) GetTimerConfig() [vm.NumTimers]vm.Word {
	var out [vm.NumTimers]vm.Word

	if t := c.machine.Timers; t != nil {
		for i := range out {
			out[i] = t.ChannelPeriod(i)
		}
	}

	return out
}

func (c *lc3Control) GetPWMStates() [vm.NumPWMChannels]vm.PWMState {
	var out [vm.NumPWMChannels]vm.PWMState

	if p := c.machine.PWM; p != nil {
		for i := range out {
			out[i] = p.ChannelState(i)
		}
	}

	return out
}

func (c *lc3Control) GetPWMConfig() [vm.NumPWMChannels]uint8 {
	var out [vm.NumPWMChannels]uint8

	if p := c.machine.PWM; p != nil {
		for i := range out {
			out[i] = p.ChannelDuty(i)
		}
	}

	return out
}

func (c *lc3Control) GetClock() vm.Word {
	if clk := c.machine.Clock; clk != nil {
		return vm.Word(clk.Get())
	}

	return 0
}

func (c *lc3Control) GetInfo() DeviceInfo { return c.info }

func (c *lc3Control) SetProgramMetadata(md vm.ProgramMetadata) {
	c.machine.Mem.SetProgramMetadata(md)
}

func (c *lc3Control) ProgramMetadata() vm.ProgramMetadata {
	return c.machine.Mem.ProgramMetadata()
}
