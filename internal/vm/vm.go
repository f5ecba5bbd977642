package vm

// vm.go defines the virtual machine and assembles it from smaller parts.

import (
	"fmt"

	"github.com/sixteen-systems/lc3vm/internal/log"
)

// LC3 is a computer simulated in software.
type LC3 struct {
	PC  ProgramCounter  // Instruction Pointer.
	IR  Instruction     // Instruction Register
	PSR ProcessorStatus // Processor Status Register.
	MCR ControlRegister // Master Control Register.
	USP Register        // User Stack Pointer.
	SSP Register        // System Stack Pointer.
	REG RegisterFile    // General-purpose Register File
	INT Interrupt       // Interrupt Line.
	Mem Memory          // All the memory you'll ever need!

	// Debug holds breakpoints and watchpoints; always present, even if unused.
	Debug *Debugger

	// Optional peripherals. Each is nil unless installed by the matching OptionFn, so the default
	// machine built by the existing asm/monitor test suites is unaffected.
	GPIO   *GPIODriver
	ADC    *ADCDriver
	PWM    *PWMDriver
	Timers *TimerDriver
	Clock  *Clock

	log *log.Logger // A record of where we've been.
}

// Tick advances every millisecond-driven peripheral (timers, clock) by elapsed milliseconds. The
// RPC device loop (internal/rpc) calls this once per server iteration; tests may call it directly
// to simulate the passage of time without a real clock.
func (vm *LC3) Tick(elapsed Word) {
	if vm.Timers != nil {
		vm.Timers.handle.device.Tick(elapsed)
	}

	if vm.Clock != nil {
		vm.Clock.Tick(elapsed)
	}
}

// New creates and initializes a virtual machine. The initial state may be affected passing a
// sequence of OptionFn. Each function is called in sequence **twice**:
//
//   - early, after devices are mapped but before drivers are initialized; and
//   - late, after device configuration.
//
// Notably, early init executes with system privileges and stack; late init runs after privileges
// are dropped.
//
// # Bugs
//
// This is a weird design.
func New(opts ...OptionFn) *LC3 {
	vm := LC3{}
	vm.initializeRegisters()
	vm.Debug = NewDebugger()

	// Configure memory.
	vm.Mem = NewMemory(&vm.PSR)

	// Create devices.
	var (
		// The keyboard device is hardwired and does not have a separate driver.
		kbd = NewKeyboard()

		// The display is more complicated: a driver configures the device with the addresses for
		// the display registers.
		display       = NewDisplay()
		displayDriver = NewDisplayDriver(display)

		// Device configuration for memory-mapped I/O.
		devices = map[Word]any{
			MCRAddr:  &vm.MCR,
			PSRAddr:  &vm.PSR,
			KBSRAddr: kbd,
			KBDRAddr: kbd,
			DSRAddr:  displayDriver,
			DDRAddr:  displayDriver,
		}
	)

	vm.log = log.DefaultLogger()

	err := vm.Mem.Devices.Map(devices)
	if err != nil {
		vm.log.Error(err.Error())
		panic(err)
	}

	// Run early-init after mapping devices but before initializing them. This allows options to
	// override or replace drivers before initialization and afterwards during late-init.
	for _, fn := range opts {
		if err := fn(&vm, false); err != nil {
			vm.log.Error("early init", "err", err)
			panic(err)
		}
	}

	vm.log.Debug("Configuring devices and drivers")

	kbd.Init(&vm, nil)                                // Keyboard needs no configuration.
	displayDriver.Init(&vm, []Word{DSRAddr, DDRAddr}) // Configure the display's address range.

	// Drop privileges and switch to user execution context.
	vm.PSR &^= (StatusPrivilege & StatusUser)
	vm.PSR |= (StatusPriority & StatusNormal) // Debatable.
	vm.REG[SP] = vm.USP

	// Run late init...
	for _, fn := range opts {
		if err := fn(&vm, true); err != nil {
			vm.log.Error("late init", "err", err)
			panic(err)
		}
	}

	return &vm
}

func (vm *LC3) String() string {
	return fmt.Sprintf("PC:  %s IR:  %s \nPSR: %s\nUSP: %s SSP: %s MCR: %s\n"+
		"MAR: %s MDR: %s",
		vm.PC.String(), vm.IR.String(), vm.PSR.String(), vm.USP.String(), vm.SSP.String(),
		vm.MCR.String(), vm.Mem.MAR.String(), vm.Mem.MDR.String())
}

// initializeRegisters sets the initial values of the virtual machine.
func (vm *LC3) initializeRegisters() {
	// Start with system privileges so we can access privileged memory and configure devices; in
	// particular, access is permitted to the system memory space. Privileges are dropped after late
	// initialization.
	vm.PSR = (StatusPrivilege & StatusSystem)

	// Don't rush things, low priority.
	vm.PSR |= (StatusPriority & StatusLow)

	// No condition codes are set, initially, though this is undefined.
	vm.PSR |= StatusCondition & ^(StatusNegative | StatusZero | StatusPositive)

	vm.PC = ProgramCounter(UserSpaceAddr) // First instruction is at the bottom of user space.
	vm.USP = Register(IOPageAddr)         // User stack grows down from the top of user space.
	vm.SSP = Register(UserSpaceAddr)      // System stack starts where user space begins, grows down.
	vm.MCR = ControlRegister(0x8000)      // Set the RUN flag. 🤾

	// Initialize general purpose registers to a pleasing pattern... except for the stack pointer.
	// Here, REG[SP] is set to SSP, but as for the privilege level, the stack is reset to the user
	// context.
	copy(vm.REG[:], []Register{
		0xffff, 0x0000,
		0xfff0, 0xf000,
		0xff00, 0x0f00,
		vm.SSP, 0x00f0,
	})
}

// PushStack pushes a word onto the current stack.
func (vm *LC3) PushStack(w Word) error {
	vm.REG[SP]--
	vm.Mem.MAR = vm.REG[SP]
	vm.Mem.MDR = Register(w)

	return vm.Mem.Store()
}

// PopStack pops a word from the current stack into MDR.
func (vm *LC3) PopStack() error {
	vm.REG[SP]++
	vm.Mem.MAR = vm.REG[SP] - 1

	return vm.Mem.Fetch()
}

// An OptionFn modifies the machine during initialization. Each function is called twice, once
// during early init and once during late init; an error aborts New.
type OptionFn func(machine *LC3, late bool) error

// WithLogger replaces the machine's logger.
func WithLogger(logger *log.Logger) OptionFn {
	return func(vm *LC3, late bool) error {
		if !late {
			vm.log = logger
		}

		return nil
	}
}

// WithSystemContext initializes the machine to use system context, i.e. with system privileges and
// stack.
func WithSystemContext() OptionFn {
	return func(vm *LC3, late bool) error {
		vm.PSR &^= (StatusPrivilege & StatusUser)
		vm.REG[SP] = vm.SSP

		return nil
	}
}

// WithDisplayListener is an option function that configures a callback that is called for
// displayed words. It uses late initialization under the assumption startup output is not
// listened for.
func WithDisplayListener(listener func(uint16)) OptionFn {
	return func(vm *LC3, late bool) error {
		if late {
			driver, ok := vm.Mem.Devices.Get(DDRAddr).(*DisplayDriver)
			if !ok {
				return fmt.Errorf("vm: display driver not mapped at %s", DDRAddr)
			}

			driver.handle.device.Listen(listener)
		}

		return nil
	}
}

// WithGPIO installs the eight-pin GPIO peripheral at its default addresses.
func WithGPIO() OptionFn {
	return func(vm *LC3, late bool) error {
		if late {
			return nil
		}

		gpio := NewGPIO()
		vm.GPIO = NewGPIODriver(gpio)

		addrs := []Word{
			GPIOCRAddr0, GPIODRAddr0, GPIOCRAddr1, GPIODRAddr1,
			GPIOCRAddr2, GPIODRAddr2, GPIOCRAddr3, GPIODRAddr3,
			GPIOCRAddr4, GPIODRAddr4, GPIOCRAddr5, GPIODRAddr5,
			GPIOCRAddr6, GPIODRAddr6, GPIOCRAddr7, GPIODRAddr7,
			GPIODRAddr,
		}

		devices := make(map[Word]any, len(addrs))
		for _, a := range addrs {
			devices[a] = vm.GPIO
		}

		if err := vm.Mem.Devices.Map(devices); err != nil {
			return fmt.Errorf("vm: gpio: %w", err)
		}

		vm.GPIO.Init(vm, addrs)
		vm.INT.Register(PL4, ISR{vector: uint8(ISRGPIOBase), driver: vm.GPIO})

		return nil
	}
}

// WithADC installs the four-channel ADC peripheral at its default addresses.
func WithADC() OptionFn {
	return func(vm *LC3, late bool) error {
		if late {
			return nil
		}

		adc := NewADC()
		vm.ADC = NewADCDriver(adc)

		addrs := []Word{
			ADCCRAddr0, ADCDRAddr0, ADCCRAddr1, ADCDRAddr1,
			ADCCRAddr2, ADCDRAddr2, ADCCRAddr3, ADCDRAddr3,
		}

		devices := make(map[Word]any, len(addrs))
		for _, a := range addrs {
			devices[a] = vm.ADC
		}

		if err := vm.Mem.Devices.Map(devices); err != nil {
			return fmt.Errorf("vm: adc: %w", err)
		}

		vm.ADC.Init(vm, addrs)

		return nil
	}
}

// WithPWM installs the two-channel PWM peripheral at its default addresses.
func WithPWM() OptionFn {
	return func(vm *LC3, late bool) error {
		if late {
			return nil
		}

		pwm := NewPWM()
		vm.PWM = NewPWMDriver(pwm)

		addrs := []Word{PWMCRAddr0, PWMDRAddr0, PWMCRAddr1, PWMDRAddr1}

		devices := make(map[Word]any, len(addrs))
		for _, a := range addrs {
			devices[a] = vm.PWM
		}

		if err := vm.Mem.Devices.Map(devices); err != nil {
			return fmt.Errorf("vm: pwm: %w", err)
		}

		vm.PWM.Init(vm, addrs)

		return nil
	}
}

// WithTimers installs the two-channel interval timer peripheral at its default addresses.
func WithTimers() OptionFn {
	return func(vm *LC3, late bool) error {
		if late {
			return nil
		}

		timers := NewTimers()
		vm.Timers = NewTimerDriver(timers)

		addrs := []Word{TimerCRAddr0, TimerDRAddr0, TimerCRAddr1, TimerDRAddr1}

		devices := make(map[Word]any, len(addrs))
		for _, a := range addrs {
			devices[a] = vm.Timers
		}

		if err := vm.Mem.Devices.Map(devices); err != nil {
			return fmt.Errorf("vm: timers: %w", err)
		}

		vm.Timers.Init(vm, addrs)
		vm.INT.Register(PL5, ISR{vector: uint8(ISRTimerBase), driver: vm.Timers})

		return nil
	}
}

// WithClock installs the free-running millisecond clock register.
func WithClock() OptionFn {
	return func(vm *LC3, late bool) error {
		if late {
			return nil
		}

		vm.Clock = NewClock()

		if err := vm.Mem.Devices.Map(map[Word]any{CLKRAddr: vm.Clock}); err != nil {
			return fmt.Errorf("vm: clock: %w", err)
		}

		return nil
	}
}
