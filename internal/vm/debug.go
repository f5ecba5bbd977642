package vm

// debug.go adds breakpoints and watchpoints to the interpreter: a flat, fixed-capacity set of each,
// consulted around the ordinary fetch/execute cycle.

import (
	"errors"
	"fmt"
)

// MaxBreakpoints and MaxWatchpoints bound the flat arrays holding each kind of debug point.
const (
	MaxBreakpoints = 10
	MaxWatchpoints = 10
)

var (
	errDebug = errors.New("debug")

	// ErrDebugFull is returned setting a breakpoint or watchpoint when the set is already full.
	ErrDebugFull = fmt.Errorf("%w: full", errDebug)

	// ErrDebugIndex is returned unsetting a breakpoint or watchpoint at an unused index.
	ErrDebugIndex = fmt.Errorf("%w: bad index", errDebug)
)

// Watchpoint observes a memory address for changes to its value.
type Watchpoint struct {
	Addr Word
	last Word
	seen bool
}

// Data returns the last value observed at the watched address, or zero if none has been observed
// yet.
func (w *Watchpoint) Data() Word {
	return w.last
}

// Debugger holds the breakpoint and watchpoint sets for one machine.
type Debugger struct {
	breakpoints [MaxBreakpoints]*Word
	watchpoints [MaxWatchpoints]*Watchpoint
}

// NewDebugger creates an empty debugger.
func NewDebugger() *Debugger {
	return &Debugger{}
}

// SetBreakpoint adds an address to the breakpoint set, returning its index.
func (d *Debugger) SetBreakpoint(addr Word) (int, error) {
	for i, b := range d.breakpoints {
		if b == nil {
			a := addr
			d.breakpoints[i] = &a

			return i, nil
		}
	}

	return 0, ErrDebugFull
}

// UnsetBreakpoint removes the breakpoint at idx.
func (d *Debugger) UnsetBreakpoint(idx int) error {
	if idx < 0 || idx >= MaxBreakpoints || d.breakpoints[idx] == nil {
		return ErrDebugIndex
	}

	d.breakpoints[idx] = nil

	return nil
}

// Breakpoints returns the current breakpoint set, nil entries marking unused slots.
func (d *Debugger) Breakpoints() [MaxBreakpoints]*Word {
	return d.breakpoints
}

// hit returns true if addr is a set breakpoint.
func (d *Debugger) hit(addr Word) bool {
	for _, b := range d.breakpoints {
		if b != nil && *b == addr {
			return true
		}
	}

	return false
}

// SetWatchpoint adds an address to the watchpoint set, returning its index.
func (d *Debugger) SetWatchpoint(addr Word) (int, error) {
	for i, w := range d.watchpoints {
		if w == nil {
			d.watchpoints[i] = &Watchpoint{Addr: addr}

			return i, nil
		}
	}

	return 0, ErrDebugFull
}

// UnsetWatchpoint removes the watchpoint at idx.
func (d *Debugger) UnsetWatchpoint(idx int) error {
	if idx < 0 || idx >= MaxWatchpoints || d.watchpoints[idx] == nil {
		return ErrDebugIndex
	}

	d.watchpoints[idx] = nil

	return nil
}

// Watchpoints returns the current watchpoint set, nil entries marking unused slots.
func (d *Debugger) Watchpoints() [MaxWatchpoints]*Watchpoint {
	return d.watchpoints
}

// observe records a store to addr, returning the watchpoint whose value changed, if any. Only a
// value *change* fires, not every write to a watched address — matching the distilled behavior of
// the original implementation, which itself flags this as a limitation rather than an ambiguity.
func (d *Debugger) observe(addr Word, val Word) (Word, bool) {
	for _, w := range d.watchpoints {
		if w == nil || w.Addr != addr {
			continue
		}

		fired := w.seen && w.last != val
		w.last = val
		w.seen = true

		if fired {
			return val, true
		}

		return 0, false
	}

	return 0, false
}

// StepEvent reports what happened during a Step call beyond ordinary execution.
type StepEvent struct {
	Breakpoint *Word
	WatchAddr  *Word
	WatchData  Word
	Halted     bool
}

// StepDebug runs one instruction, honoring breakpoints (checked against the about-to-be-fetched PC,
// before execution) and watchpoints (checked against memory stores performed during execution). It
// wraps the ordinary Step method rather than duplicating the fetch/decode/execute sequence.
func (vm *LC3) StepDebug() (StepEvent, error) {
	if !vm.MCR.Running() {
		return StepEvent{Halted: true}, nil
	}

	if vm.Debug != nil && vm.Debug.hit(Word(vm.PC)) {
		addr := Word(vm.PC)

		return StepEvent{Breakpoint: &addr}, nil
	}

	vm.Mem.watch = vm.Debug

	err := vm.Step()

	ev := StepEvent{}

	if vm.Mem.lastWatch != nil {
		ev.WatchAddr = vm.Mem.lastWatch
		ev.WatchData = vm.Mem.lastWatchData
		vm.Mem.lastWatch = nil
	}

	if err != nil && errors.Is(err, ErrHalted) {
		ev.Halted = true

		return ev, nil
	}

	return ev, err
}
