// Package monitor implements a system monitor or BIOS for the machine.
package monitor

import (
	"fmt"

	"github.com/sixteen-systems/lc3vm/internal/asm"
	"github.com/sixteen-systems/lc3vm/internal/log"
	"github.com/sixteen-systems/lc3vm/internal/vm"
)

// WithSystemImage initializes the machine with a given image.
func WithSystemImage(image *SystemImage) vm.OptionFn {
	return func(machine *vm.LC3, late bool) error {
		if late {
			loader := vm.NewLoader(machine)
			_, err := image.LoadTo(loader)

			return err
		}

		return nil
	}
}

// WithDefaultSystemImage initializes the machine with the default system image. You should probably
// use this.
func WithDefaultSystemImage() vm.OptionFn {
	return WithSystemImage(NewSystemImage(log.DefaultLogger()))
}

// SystemImage holds the initial state of memory for the machine. After construction, the image is
// loaded into the machine using the poorly named LoadTo function.
type SystemImage struct {
	Symbols    asm.SymbolTable // System or monitor symbol table.
	Data       vm.ObjectCode   // System data, globally shared among all routines.
	Traps      []Routine       // System calls are called from user context to do basic I/O.
	ISRs       []Routine       // Interrupt service routines are called from interrupt context.
	Exceptions []Routine       // Exception handlers are called in response to program faults.

	logger *log.Logger
}

// Routine represents a system-defined system handler. Each routine's code is stored at an origin
// offset. The machine dispatches to the routine using an entry in a vector table.
type Routine struct {
	Name    string          // Debug friend.
	Vector  vm.Word         // Vector table-entry.
	Orig    vm.Word         // Origin-offset address.
	Code    []asm.Operation // Code and data.
	Symbols asm.SymbolTable // Routine symbols.
}

// NewSystemImage creates a system image including basic I/O system calls and exception handlers.
func NewSystemImage(logger *log.Logger) *SystemImage {
	data := vm.ObjectCode{
		Orig: 0x0500,
		Code: []vm.Word{},
	}

	sym := asm.SymbolTable{} // TODO: No global symbols.

	return &SystemImage{
		Symbols: sym,
		Data:    data,
		Traps: []Routine{
			TrapHalt,
			TrapGetc,
			TrapOut,
			TrapPuts,
			TrapGPIOIn,
			TrapGPIOOut,
			TrapADCIn,
			TrapPWMOut,
			TrapTimerGet,
			TrapTimerSet,
			TrapClockGet,
		},
		ISRs:       []Routine{},
		Exceptions: []Routine{},
		logger:     logger,
	}
}

// LoadTo uses a loader to initialize the machine with every routine in the image: traps,
// interrupt service routines and exception handlers alike.
func (img *SystemImage) LoadTo(loader *vm.Loader) (uint16, error) {
	count := uint16(0)

	for _, routines := range [][]Routine{img.Traps, img.ISRs, img.Exceptions} {
		for _, routine := range routines {
			obj, err := img.generate(routine)
			if err != nil {
				return count, err
			}

			c, err := loader.LoadVector(routine.Vector, obj)
			if err != nil {
				return count, err
			}

			count += c
		}
	}

	return count, nil
}

// generate assembles a single routine, merging the image's global symbols with the routine's own.
func (img *SystemImage) generate(routine Routine) (vm.ObjectCode, error) {
	img.logger.Debug("Generating code",
		"routine", routine.Name,
		"orig", routine.Orig,
		"symbols", len(routine.Symbols),
		"size", len(routine.Code),
	)

	sym := asm.SymbolTable{}

	for label, addr := range img.Symbols {
		sym[label] = addr
	}

	for label, addr := range routine.Symbols {
		sym[label] = addr
	}

	return generate(routine.Orig, routine.Code, sym)
}

// GenerateRoutine assembles a BIOS routine, i.e. a trap, interrupt or exception handler, using its
// own symbol table only.
func GenerateRoutine(routine Routine) (vm.ObjectCode, error) {
	return generate(routine.Orig, routine.Code, routine.Symbols)
}

func generate(orig vm.Word, code []asm.Operation, symbols asm.SymbolTable) (vm.ObjectCode, error) {
	pc := uint16(orig)

	obj := vm.ObjectCode{
		Orig: orig,
		Code: make([]vm.Word, 0, len(code)),
	}

	for _, oper := range code {
		if oper == nil {
			continue
		}

		encoded, err := oper.Generate(symbols, pc+1)
		if err != nil {
			return obj, fmt.Errorf("pc: %#04x (%s): %w", pc, oper, err)
		}

		for i := range encoded {
			obj.Code = append(obj.Code, encoded[i])
		}

		pc += uint16(len(encoded))
	}

	return obj, nil
}

// loadImage loads every routine in a system image into the machine via loader, discarding the
// word count.
func loadImage(loader *vm.Loader, image *SystemImage) error {
	_, err := image.LoadTo(loader)
	return err
}
