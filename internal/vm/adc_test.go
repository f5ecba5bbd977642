package vm

import "testing"

func TestADCReadRequiresEnabled(t *testing.T) {
	a := NewADC()

	if _, err := a.Read(0); err == nil {
		t.Fatal("Read on a disabled channel should fail")
	}

	if err := a.SetState(0, ADCEnabled); err != nil {
		t.Fatalf("SetState: %v", err)
	}

	a.SetSample(0, 200)

	val, err := a.Read(0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if val != 200 {
		t.Fatalf("Read() = %d; want 200", val)
	}
}

func TestADCMiscErrorOnOutOfRangeChannel(t *testing.T) {
	a := NewADC()

	if err := a.SetState(NumADCPins, ADCEnabled); err == nil {
		t.Fatal("SetState on an out-of-range channel should fail")
	}

	if _, err := a.Read(-1); err == nil {
		t.Fatal("Read on an out-of-range channel should fail")
	}
}

func TestADCDriverControlAndDataRegisters(t *testing.T) {
	a := NewADC()
	d := NewADCDriver(a)

	addrs := make([]Word, 2*NumADCPins)
	for i := range addrs {
		addrs[i] = Word(0x3300 + i)
	}

	d.Init(nil, addrs)

	crAddr, drAddr := addrs[0], addrs[1]

	if err := d.Write(crAddr, Register(ADCEnabled)); err != nil {
		t.Fatalf("Write(cr): %v", err)
	}

	a.SetSample(0, 77)

	val, err := d.Read(drAddr)
	if err != nil {
		t.Fatalf("Read(dr): %v", err)
	}

	if val != 77 {
		t.Fatalf("Read(dr) = %d; want 77", val)
	}

	// Writing the data register is ignored; it only mirrors a sampled reading.
	if err := d.Write(drAddr, 1); err != nil {
		t.Fatalf("Write(dr): %v", err)
	}

	val, err = d.Read(drAddr)
	if err != nil {
		t.Fatalf("Read(dr): %v", err)
	}

	if val != 77 {
		t.Fatalf("Read(dr) after write = %d; want unchanged 77", val)
	}

	if state := d.ChannelState(0); state != ADCEnabled {
		t.Fatalf("ChannelState(0) = %s; want ENABLED", state)
	}
}

func TestADCDriverNeverInterrupts(t *testing.T) {
	d := NewADCDriver(NewADC())

	if d.InterruptRequested() {
		t.Fatal("ADCDriver should never request an interrupt")
	}
}
