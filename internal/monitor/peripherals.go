package monitor

import (
	"github.com/sixteen-systems/lc3vm/internal/asm"
	"github.com/sixteen-systems/lc3vm/internal/vm"
)

// The peripheral traps below are stub routines: unlike GETC/OUT/PUTS they never block, since the
// GPIO/ADC/PWM/Timer/Clock registers never hold a reader up the way the keyboard or display do. A
// caller still goes through a TRAP rather than touching MMIO directly, so user programs keep one
// calling convention across every device the monitor exposes. Only the first vector (the first two,
// for GPIO and the timers) of each peripheral's reserved range gets a routine; the rest are left for a fuller calling convention to
// fill in later (one call per pin/channel, an argument register for which pin/channel, and so on).

// TrapGPIOIn reads the aggregate GPIO data register into R0.
//
//   - Handler: 0x1070
//   - Table: 0x00
//   - Vector: 0x30
var TrapGPIOIn = Routine{
	Name:   "GPIOIN",
	Vector: vm.TrapTable + vm.TrapGPIOBase,
	Orig:   0x1070,
	Code: []asm.Operation{
		&asm.LDI{DR: "R0", SYMBOL: "GPIODRPTR"},
		&asm.RTI{},
		&asm.FILL{LITERAL: uint16(vm.GPIODRAddr)},
	},
	Symbols: asm.SymbolTable{
		"GPIODRPTR": 0x1070 + 2,
	},
}

// TrapGPIOOut writes R0 to the aggregate GPIO data register.
//
//   - Handler: 0x1080
//   - Table: 0x00
//   - Vector: 0x31
var TrapGPIOOut = Routine{
	Name:   "GPIOOUT",
	Vector: vm.TrapTable + vm.TrapGPIOBase + 1,
	Orig:   0x1080,
	Code: []asm.Operation{
		&asm.STI{SR: "R0", SYMBOL: "GPIODRPTR"},
		&asm.RTI{},
		&asm.FILL{LITERAL: uint16(vm.GPIODRAddr)},
	},
	Symbols: asm.SymbolTable{
		"GPIODRPTR": 0x1080 + 2,
	},
}

// TrapADCIn reads ADC channel 0's data register into R0.
//
//   - Handler: 0x1090
//   - Table: 0x00
//   - Vector: 0x40
var TrapADCIn = Routine{
	Name:   "ADCIN",
	Vector: vm.TrapTable + vm.TrapADCBase,
	Orig:   0x1090,
	Code: []asm.Operation{
		&asm.LDI{DR: "R0", SYMBOL: "ADCDR0PTR"},
		&asm.RTI{},
		&asm.FILL{LITERAL: uint16(vm.ADCDRAddr0)},
	},
	Symbols: asm.SymbolTable{
		"ADCDR0PTR": 0x1090 + 2,
	},
}

// TrapPWMOut writes R0 to PWM channel 0's duty register.
//
//   - Handler: 0x10a0
//   - Table: 0x00
//   - Vector: 0x50
var TrapPWMOut = Routine{
	Name:   "PWMOUT",
	Vector: vm.TrapTable + vm.TrapPWMBase,
	Orig:   0x10a0,
	Code: []asm.Operation{
		&asm.STI{SR: "R0", SYMBOL: "PWMDR0PTR"},
		&asm.RTI{},
		&asm.FILL{LITERAL: uint16(vm.PWMDRAddr0)},
	},
	Symbols: asm.SymbolTable{
		"PWMDR0PTR": 0x10a0 + 2,
	},
}

// TrapTimerGet reads timer 0's period register into R0.
//
//   - Handler: 0x10b0
//   - Table: 0x00
//   - Vector: 0x60
var TrapTimerGet = Routine{
	Name:   "TIMERGET",
	Vector: vm.TrapTable + vm.TrapTimerBase,
	Orig:   0x10b0,
	Code: []asm.Operation{
		&asm.LDI{DR: "R0", SYMBOL: "TIMERDR0PTR"},
		&asm.RTI{},
		&asm.FILL{LITERAL: uint16(vm.TimerDRAddr0)},
	},
	Symbols: asm.SymbolTable{
		"TIMERDR0PTR": 0x10b0 + 2,
	},
}

// TrapTimerSet writes R0 to timer 0's period register.
//
//   - Handler: 0x10c0
//   - Table: 0x00
//   - Vector: 0x61
var TrapTimerSet = Routine{
	Name:   "TIMERSET",
	Vector: vm.TrapTable + vm.TrapTimerBase + 1,
	Orig:   0x10c0,
	Code: []asm.Operation{
		&asm.STI{SR: "R0", SYMBOL: "TIMERDR0PTR"},
		&asm.RTI{},
		&asm.FILL{LITERAL: uint16(vm.TimerDRAddr0)},
	},
	Symbols: asm.SymbolTable{
		"TIMERDR0PTR": 0x10c0 + 2,
	},
}

// TrapClockGet reads the free-running clock into R0.
//
//   - Handler: 0x10d0
//   - Table: 0x00
//   - Vector: 0x70
var TrapClockGet = Routine{
	Name:   "CLOCKGET",
	Vector: vm.TrapTable + vm.TrapClockBase,
	Orig:   0x10d0,
	Code: []asm.Operation{
		&asm.LDI{DR: "R0", SYMBOL: "CLKRPTR"},
		&asm.RTI{},
		&asm.FILL{LITERAL: uint16(vm.CLKRAddr)},
	},
	Symbols: asm.SymbolTable{
		"CLKRPTR": 0x10d0 + 2,
	},
}
