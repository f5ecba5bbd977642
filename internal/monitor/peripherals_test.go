package monitor

import (
	"testing"

	"github.com/sixteen-systems/lc3vm/internal/vm"
)

func TestTrap_GPIOOut(tt *testing.T) {
	t := NewHarness(tt)

	image := SystemImage{
		logger:  t.Logger(),
		Symbols: nil,
		Traps:   []Routine{TrapGPIOOut, TrapHalt},
	}

	machine := vm.New(
		WithSystemImage(&image),
		vm.WithGPIO(),
	)

	// Configure pin 0 as OUTPUT by poking its control register directly; the PSR starts in
	// supervisor mode so this bypasses the usual TRAP path without tripping access control.
	machine.Mem.MAR = vm.Register(vm.GPIOCRAddr0)
	machine.Mem.MDR = vm.Register(vm.GPIOOutput)

	if err := machine.Mem.Store(); err != nil {
		t.Fatalf("configuring pin 0 as OUTPUT: %v", err)
	}

	loader := vm.NewLoader(machine)

	code := vm.ObjectCode{
		Orig: 0x3000,
		Code: []vm.Word{
			vm.NewInstruction(vm.TRAP, uint16(vm.TrapGPIOBase+1)).Encode(),
			vm.NewInstruction(vm.TRAP, uint16(vm.TrapHALT)).Encode(),
		},
	}

	unsafeLoad(loader, code)

	machine.REG[vm.R0] = 0x0001 // pin 0 high, every other pin low

	for i := 0; i < 1000; i++ {
		err := machine.Step()

		if err != nil {
			t.Errorf("Step error %s", err)
			break
		} else if !machine.MCR.Running() {
			break
		}
	}

	got, err := machine.GPIO.PinRead(0)
	if err != nil {
		t.Fatalf("PinRead(0): %v", err)
	}

	if !got {
		t.Errorf("pin 0 = %v; want true after TRAP x31 with R0 bit 0 set", got)
	}
}

func TestTrap_GPIOIn(tt *testing.T) {
	t := NewHarness(tt)

	image := SystemImage{
		logger:  t.Logger(),
		Symbols: nil,
		Traps:   []Routine{TrapGPIOIn, TrapHalt},
	}

	machine := vm.New(
		WithSystemImage(&image),
		vm.WithGPIO(),
	)

	loader := vm.NewLoader(machine)

	code := vm.ObjectCode{
		Orig: 0x3000,
		Code: []vm.Word{
			vm.NewInstruction(vm.TRAP, uint16(vm.TrapGPIOBase)).Encode(),
			vm.NewInstruction(vm.TRAP, uint16(vm.TrapHALT)).Encode(),
		},
	}

	unsafeLoad(loader, code)

	for i := 0; i < 1000; i++ {
		err := machine.Step()

		if err != nil {
			t.Errorf("Step error %s", err)
			break
		} else if !machine.MCR.Running() {
			break
		}
	}
}

func TestTrap_ClockGet(tt *testing.T) {
	t := NewHarness(tt)

	image := SystemImage{
		logger:  t.Logger(),
		Symbols: nil,
		Traps:   []Routine{TrapClockGet, TrapHalt},
	}

	machine := vm.New(
		WithSystemImage(&image),
		vm.WithClock(),
	)

	machine.Clock.Put(0x0042)

	loader := vm.NewLoader(machine)

	code := vm.ObjectCode{
		Orig: 0x3000,
		Code: []vm.Word{
			vm.NewInstruction(vm.TRAP, uint16(vm.TrapClockBase)).Encode(),
			vm.NewInstruction(vm.TRAP, uint16(vm.TrapHALT)).Encode(),
		},
	}

	unsafeLoad(loader, code)

	for i := 0; i < 1000; i++ {
		err := machine.Step()

		if err != nil {
			t.Errorf("Step error %s", err)
			break
		} else if !machine.MCR.Running() {
			break
		}
	}

	if got := machine.REG[vm.R0]; got != 0x0042 {
		t.Errorf("R0 = %#x; want 0x0042 after TRAP x70", got)
	}
}

func TestGeneratedPeripheralRoutinesAreBounded(tt *testing.T) {
	t := NewHarness(tt)

	for _, routine := range []Routine{
		TrapGPIOIn, TrapGPIOOut, TrapADCIn, TrapPWMOut, TrapTimerGet, TrapTimerSet, TrapClockGet,
	} {
		obj, err := GenerateRoutine(routine)
		if err != nil {
			t.Errorf("%s: %v", routine.Name, err)
			continue
		}

		if len(obj.Code) < 2 || len(obj.Code) > 10 {
			t.Errorf("%s: code len = %d; want a short stub (2-10 words)", routine.Name, len(obj.Code))
		}
	}
}
