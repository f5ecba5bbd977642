package vm

// clock.go implements the free-running millisecond clock at CLKRAddr. Like the timers, it advances
// only when the interpreter calls Tick, not against a real wall clock.

import (
	"fmt"
	"sync"
)

// Clock is a free-running millisecond counter, readable and settable through CLKR.
type Clock struct {
	mut sync.Mutex
	ms  Word
}

// NewClock creates a clock starting at zero milliseconds.
func NewClock() *Clock {
	return &Clock{}
}

func (*Clock) device() string { return "CLOCK(MS)" }

// Tick advances the clock by elapsed milliseconds, wrapping on overflow.
func (c *Clock) Tick(elapsed Word) {
	c.mut.Lock()
	defer c.mut.Unlock()

	c.ms += elapsed
}

// Get returns the current millisecond count.
func (c *Clock) Get() Register {
	c.mut.Lock()
	defer c.mut.Unlock()

	return Register(c.ms)
}

// Put sets the current millisecond count.
func (c *Clock) Put(val Register) {
	c.mut.Lock()
	defer c.mut.Unlock()

	c.ms = Word(val)
}

func (c *Clock) String() string {
	c.mut.Lock()
	defer c.mut.Unlock()

	return fmt.Sprintf("Clock(ms:%s)", c.ms)
}
