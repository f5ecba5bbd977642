package monitor

import (
	"github.com/sixteen-systems/lc3vm/internal/asm"
	"github.com/sixteen-systems/lc3vm/internal/vm"
)

// TrapHalt is the system call to stop the machine by clearing the running bit of the machine
// control register.
//
//   - Handler: 0x1000
//   - Table: 0x00
//   - Vector: 0x25
var TrapHalt = Routine{
	Name:   "HALT",
	Vector: vm.TrapTable + vm.TrapHALT,
	Orig:   0x1000,
	Code: []asm.Operation{
		&asm.ADD{DR: "R6", SR1: "R6", LITERAL: 0x1f}, // push R0
		&asm.STR{SR1: "R0", SR2: "R6", OFFSET: 0},
		&asm.ADD{DR: "R6", SR1: "R6", LITERAL: 0x1f}, // push R1
		&asm.STR{SR1: "R1", SR2: "R6", OFFSET: 0},
		&asm.LDI{DR: "R0", SYMBOL: "MCRPTR"},
		&asm.LDI{DR: "R1", SYMBOL: "MASKPTR"},
		&asm.AND{DR: "R0", SR1: "R0", SR2: "R1"},
		&asm.STI{SR: "R0", SYMBOL: "MCRPTR"},
		&asm.LDR{DR: "R1", SR: "R6", OFFSET: 0}, // pop R1
		&asm.ADD{DR: "R6", SR1: "R6", LITERAL: 1},
		&asm.LDR{DR: "R0", SR: "R6", OFFSET: 0}, // pop R0
		&asm.ADD{DR: "R6", SR1: "R6", LITERAL: 1},
		&asm.RTI{},
		&asm.FILL{LITERAL: uint16(vm.MCRAddr)},
		&asm.FILL{LITERAL: 0x7fff},
	},
	Symbols: asm.SymbolTable{
		"MCRPTR":  0x1000 + 13,
		"MASKPTR": 0x1000 + 14,
	},
}

// TrapGetc blocks until a key is pressed and returns the key's ASCII value in R0. It does not echo
// the key to the display.
//
//   - Handler: 0x1020
//   - Table: 0x00
//   - Vector: 0x20
var TrapGetc = Routine{
	Name:   "GETC",
	Vector: vm.TrapTable + vm.TrapGETC,
	Orig:   0x1020,
	Code: []asm.Operation{
		&asm.LDI{DR: "R0", SYMBOL: "KBSRPTR"},
		&asm.BR{NZP: asm.CondZP, SYMBOL: "WAIT"},
		&asm.LDI{DR: "R0", SYMBOL: "KBDRPTR"},
		&asm.RTI{},
		&asm.FILL{LITERAL: uint16(vm.KBSRAddr)},
		&asm.FILL{LITERAL: uint16(vm.KBDRAddr)},
	},
	Symbols: asm.SymbolTable{
		"WAIT":    0x1020,
		"KBSRPTR": 0x1020 + 4,
		"KBDRPTR": 0x1020 + 5,
	},
}

// TrapOut writes the character in R0 to the display, blocking until the display is ready.
//
//   - Handler: 0x1030
//   - Table: 0x00
//   - Vector: 0x21
var TrapOut = Routine{
	Name:   "OUT",
	Vector: vm.TrapTable + vm.TrapOUT,
	Orig:   0x1030,
	Code: []asm.Operation{
		&asm.ADD{DR: "R6", SR1: "R6", LITERAL: 0x1f}, // push R1
		&asm.STR{SR1: "R1", SR2: "R6", OFFSET: 0},
		&asm.LDI{DR: "R1", SYMBOL: "DSRPTR"},
		&asm.BR{NZP: asm.CondZP, SYMBOL: "WAIT"},
		&asm.STI{SR: "R0", SYMBOL: "DDRPTR"},
		&asm.LDR{DR: "R1", SR: "R6", OFFSET: 0}, // pop R1
		&asm.ADD{DR: "R6", SR1: "R6", LITERAL: 1},
		&asm.RTI{},
		&asm.FILL{LITERAL: uint16(vm.DSRAddr)},
		&asm.FILL{LITERAL: uint16(vm.DDRAddr)},
	},
	Symbols: asm.SymbolTable{
		"WAIT":   0x1030 + 2,
		"DSRPTR": 0x1030 + 8,
		"DDRPTR": 0x1030 + 9,
	},
}

// TrapPuts writes the null-terminated string pointed to by R0 to the display, one character at a
// time, blocking on each character until the display is ready.
//
//   - Handler: 0x1050
//   - Table: 0x00
//   - Vector: 0x22
var TrapPuts = Routine{
	Name:   "PUTS",
	Vector: vm.TrapTable + vm.TrapPUTS,
	Orig:   0x1050,
	Code: []asm.Operation{
		&asm.ADD{DR: "R6", SR1: "R6", LITERAL: 0x1f}, // push R1
		&asm.STR{SR1: "R1", SR2: "R6", OFFSET: 0},
		&asm.ADD{DR: "R6", SR1: "R6", LITERAL: 0x1f}, // push R2
		&asm.STR{SR1: "R2", SR2: "R6", OFFSET: 0},
		&asm.ADD{DR: "R6", SR1: "R6", LITERAL: 0x1f}, // push R3
		&asm.STR{SR1: "R3", SR2: "R6", OFFSET: 0},
		&asm.ADD{DR: "R1", SR1: "R0", LITERAL: 0}, // R1 <- R0, string pointer
		&asm.LDR{DR: "R2", SR: "R1", OFFSET: 0},   // LOOP: R2 <- *R1
		&asm.BR{NZP: asm.CondZero, SYMBOL: "DONE"},
		&asm.LDI{DR: "R3", SYMBOL: "DSRPTR"}, // WAIT:
		&asm.BR{NZP: asm.CondZP, SYMBOL: "WAIT"},
		&asm.STI{SR: "R2", SYMBOL: "DDRPTR"},
		&asm.ADD{DR: "R1", SR1: "R1", LITERAL: 1},
		&asm.BR{NZP: asm.CondNZP, SYMBOL: "LOOP"},
		&asm.LDR{DR: "R3", SR: "R6", OFFSET: 0}, // DONE: pop R3
		&asm.ADD{DR: "R6", SR1: "R6", LITERAL: 1},
		&asm.LDR{DR: "R2", SR: "R6", OFFSET: 0}, // pop R2
		&asm.ADD{DR: "R6", SR1: "R6", LITERAL: 1},
		&asm.LDR{DR: "R1", SR: "R6", OFFSET: 0}, // pop R1
		&asm.ADD{DR: "R6", SR1: "R6", LITERAL: 1},
		&asm.RTI{},
		&asm.FILL{LITERAL: uint16(vm.DSRAddr)},
		&asm.FILL{LITERAL: uint16(vm.DDRAddr)},
	},
	Symbols: asm.SymbolTable{
		"LOOP":   0x1050 + 7,
		"WAIT":   0x1050 + 9,
		"DONE":   0x1050 + 14,
		"DSRPTR": 0x1050 + 21,
		"DDRPTR": 0x1050 + 22,
	},
}
