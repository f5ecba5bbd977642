package vm

import "testing"

func TestTimerSingleShotFiresOnceThenDisables(t *testing.T) {
	tm := NewTimers()

	tm.SetState(0, TimerSingleShot)
	tm.SetPeriod(0, 100)

	tm.Tick(60)
	if tm.InterruptOccurred(0) {
		t.Fatal("InterruptOccurred(0) should be false before the period elapses")
	}

	tm.Tick(40)
	if !tm.InterruptOccurred(0) {
		t.Fatal("InterruptOccurred(0) should be true once the period elapses")
	}

	if got := tm.State(0); got != TimerDisabled {
		t.Fatalf("State(0) = %s; want DISABLED after a single-shot fires", got)
	}
}

func TestTimerRepeatedRearmsAfterFiring(t *testing.T) {
	tm := NewTimers()

	tm.SetState(1, TimerRepeated)
	tm.SetPeriod(1, 10)

	tm.Tick(10)
	if !tm.InterruptOccurred(1) {
		t.Fatal("InterruptOccurred(1) should latch once the period elapses")
	}

	if got := tm.State(1); got != TimerRepeated {
		t.Fatalf("State(1) = %s; want REPEATED to remain armed", got)
	}

	tm.ResetInterruptFlag(1)
	tm.Tick(10)

	if !tm.InterruptOccurred(1) {
		t.Fatal("a repeated timer should fire again after rearming")
	}
}

func TestTimerDisabledIgnoresZeroPeriod(t *testing.T) {
	tm := NewTimers()

	tm.SetState(0, TimerRepeated)
	tm.Tick(1000)

	if tm.InterruptOccurred(0) {
		t.Fatal("a timer with a zero period should never fire")
	}
}

func TestTimerDriverControlAndPeriodRegisters(t *testing.T) {
	tm := NewTimers()
	d := NewTimerDriver(tm)

	addrs := make([]Word, 2*NumTimers)
	for i := range addrs {
		addrs[i] = Word(0x3500 + i)
	}

	d.Init(nil, addrs)

	crAddr, drAddr := addrs[0], addrs[1]

	if err := d.Write(drAddr, 25); err != nil {
		t.Fatalf("Write(period): %v", err)
	}

	if err := d.Write(crAddr, Register(TimerRepeated)|(1<<2)); err != nil {
		t.Fatalf("Write(cr): %v", err)
	}

	crVal, err := d.Read(crAddr)
	if err != nil {
		t.Fatalf("Read(cr): %v", err)
	}

	if crVal&0x3 != Word(TimerRepeated) {
		t.Fatalf("Read(cr) state bits = %#x; want REPEATED", crVal&0x3)
	}

	if crVal&(1<<2) == 0 {
		t.Fatal("Read(cr) should reflect the interrupt-enable bit")
	}

	if d.ChannelPeriod(0) != 25 {
		t.Fatalf("ChannelPeriod(0) = %d; want 25", d.ChannelPeriod(0))
	}
}

func TestTimerDriverInterruptRequested(t *testing.T) {
	tm := NewTimers()
	d := NewTimerDriver(tm)
	d.Init(nil, make([]Word, 2*NumTimers))

	tm.SetState(0, TimerSingleShot)
	tm.SetPeriod(0, 5)
	tm.SetInterruptEnableBit(0, true)

	if d.InterruptRequested() {
		t.Fatal("InterruptRequested() should be false before the timer fires")
	}

	tm.Tick(5)

	if !d.InterruptRequested() {
		t.Fatal("InterruptRequested() should be true once an enabled timer fires")
	}
}
