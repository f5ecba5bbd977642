package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/sixteen-systems/lc3vm/internal/control"
	"github.com/sixteen-systems/lc3vm/internal/vm"
)

// fakeControl is a minimal, self-contained control.Control used to exercise the wire protocol
// without constructing a full *vm.LC3. It mirrors only the state a handful of tests touch.
type fakeControl struct {
	pc      vm.Word
	regs    [vm.NumGPR]vm.Word
	shared  *control.SharedState
	running bool
	state   control.State
	info    control.DeviceInfo
	meta    vm.ProgramMetadata
}

func newFakeControl() *fakeControl {
	return &fakeControl{
		shared: control.NewSharedState(),
		state:  control.StatePaused,
		info:   control.DeviceInfo{ID: "fake", Version: "test"},
	}
}

func (f *fakeControl) GetPC() vm.Word { return f.pc }
func (f *fakeControl) SetPC(addr vm.Word) { f.pc = addr }
func (f *fakeControl) GetRegister(r vm.GPR) vm.Word { return f.regs[r] }
func (f *fakeControl) SetRegister(r vm.GPR, data vm.Word) { f.regs[r] = data }
func (f *fakeControl) GetRegistersPSRAndPC() ([vm.NumGPR]vm.Word, vm.Word, vm.Word) {
	return f.regs, 0, f.pc
}

func (f *fakeControl) ReadWord(vm.Word) vm.Word       { return 0 }
func (f *fakeControl) WriteWord(vm.Word, vm.Word)     {}

func (f *fakeControl) StartPageWrite(uint8, uint64) (control.PageToken, error) {
	return control.PageToken{}, nil
}
func (f *fakeControl) SendPageChunk(control.PageToken, uint8, [control.ChunkWords]vm.Word) (control.PageToken, error) {
	return control.PageToken{}, nil
}
func (f *fakeControl) FinishPageWrite(control.PageToken) error { return nil }

func (f *fakeControl) SetBreakpoint(vm.Word) (int, error) { return 0, nil }
func (f *fakeControl) UnsetBreakpoint(int) error          { return nil }
func (f *fakeControl) GetBreakpoints() [control.MaxBreakpoints]*vm.Word {
	return [control.MaxBreakpoints]*vm.Word{}
}
func (f *fakeControl) GetMaxBreakpoints() int { return control.MaxBreakpoints }

func (f *fakeControl) SetMemoryWatchpoint(vm.Word) (int, error) { return 0, nil }
func (f *fakeControl) UnsetMemoryWatchpoint(int) error          { return nil }
func (f *fakeControl) GetMemoryWatchpoints() [control.MaxWatchpoints]*control.WatchEntry {
	return [control.MaxWatchpoints]*control.WatchEntry{}
}
func (f *fakeControl) GetMaxMemoryWatchpoints() int { return control.MaxWatchpoints }

func (f *fakeControl) Tick() {}
func (f *fakeControl) RunUntilEvent() *control.Future {
	f.running = true
	return f.shared.NewFuture()
}
func (f *fakeControl) Step() (control.Event, bool) { return nil, false }
func (f *fakeControl) Pause()                      {}
func (f *fakeControl) GetState() control.State     { return f.state }
func (f *fakeControl) Reset()                      {}
func (f *fakeControl) GetError() error             { return nil }

func (f *fakeControl) GetGPIOStates() [vm.NumGPIOPins]vm.GPIOState {
	return [vm.NumGPIOPins]vm.GPIOState{}
}
func (f *fakeControl) GetGPIOReadings() [vm.NumGPIOPins]control.GPIOReading {
	return [vm.NumGPIOPins]control.GPIOReading{}
}
func (f *fakeControl) GetADCStates() [vm.NumADCPins]vm.ADCState {
	return [vm.NumADCPins]vm.ADCState{}
}
func (f *fakeControl) GetADCReadings() [vm.NumADCPins]control.ADCReading {
	return [vm.NumADCPins]control.ADCReading{}
}
func (f *fakeControl) GetTimerStates() [vm.NumTimers]vm.TimerState {
	return [vm.NumTimers]vm.TimerState{}
}
func (f *fakeControl) GetTimerConfig() [vm.NumTimers]vm.Word { return [vm.NumTimers]vm.Word{} }
func (f *fakeControl) GetPWMStates() [vm.NumPWMChannels]vm.PWMState {
	return [vm.NumPWMChannels]vm.PWMState{}
}
func (f *fakeControl) GetPWMConfig() [vm.NumPWMChannels]uint8 {
	return [vm.NumPWMChannels]uint8{}
}
func (f *fakeControl) GetClock() vm.Word { return 0 }

func (f *fakeControl) GetInfo() control.DeviceInfo               { return f.info }
func (f *fakeControl) SetProgramMetadata(md vm.ProgramMetadata)   { f.meta = md }
func (f *fakeControl) ProgramMetadata() vm.ProgramMetadata        { return f.meta }

// driveDeviceInBackground repeatedly steps device against ctrl until stop is closed, standing in
// for the host timer tick that drives a real deployment.
func driveDeviceInBackground(t *testing.T, device *Device, ctrl control.Control) (stop func()) {
	t.Helper()

	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}

			device.Step(ctrl)
			time.Sleep(time.Millisecond)
		}
	}()

	return func() { close(done) }
}

func TestControllerDeviceRegisterRoundTrip(t *testing.T) {
	controllerTx, deviceTx := LoopbackPair(8)

	ctl := NewController(TransparentEncoding{}, controllerTx)
	fake := newFakeControl()
	device := NewDevice(TransparentDecoding{}, deviceTx)

	defer driveDeviceInBackground(t, device, fake)()

	ctl.SetPC(0x3050)

	if got := ctl.GetPC(); got != 0x3050 {
		t.Fatalf("GetPC() = %#x; want 0x3050", got)
	}

	ctl.SetRegister(2, 0x00FF)

	if got := ctl.GetRegister(2); got != 0x00FF {
		t.Fatalf("GetRegister(2) = %#x; want 0x00ff", got)
	}

	info := ctl.GetInfo()
	if info.ID != "fake" {
		t.Fatalf("GetInfo().ID = %q; want \"fake\"", info.ID)
	}
}

func TestControllerDeviceJSONCodec(t *testing.T) {
	controllerTx, deviceTx := LoopbackPair(8)

	ctl := NewController(JSONEncoding{}, controllerTx)
	fake := newFakeControl()
	device := NewDevice(JSONDecoding{}, deviceTx)

	defer driveDeviceInBackground(t, device, fake)()

	meta := vm.ProgramMetadata{Name: "hello"}
	ctl.SetProgramMetadata(meta)

	got := ctl.ProgramMetadata()
	if got.Name != "hello" {
		t.Fatalf("ProgramMetadata().Name = %q; want \"hello\"", got.Name)
	}
}

func TestControllerRunUntilEventResolvesFromDevice(t *testing.T) {
	controllerTx, deviceTx := LoopbackPair(8)

	ctl := NewController(TransparentEncoding{}, controllerTx)
	fake := newFakeControl()
	device := NewDevice(TransparentDecoding{}, deviceTx)

	future := ctl.RunUntilEvent()

	stop := make(chan struct{})

	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}

			device.Step(fake)
			ctl.Tick()
			time.Sleep(time.Millisecond)

			if fake.running {
				fake.running = false
				fake.shared.Resolve(control.EventHalted{})
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	event, err := future.Wait(ctx)
	close(stop)

	if err != nil {
		t.Fatalf("future.Wait: %v", err)
	}

	if _, ok := event.(control.EventHalted); !ok {
		t.Fatalf("event = %v; want control.EventHalted{}", event)
	}
}

func TestChannelTransportLoopbackPair(t *testing.T) {
	a, b := LoopbackPair(1)

	if err := a.Send([]byte("ping")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	data, ok, err := b.Get()
	if err != nil || !ok {
		t.Fatalf("Get() = %q, %v, %v; want data, true, nil", data, ok, err)
	}

	if string(data) != "ping" {
		t.Fatalf("Get() = %q; want \"ping\"", data)
	}

	a.Close()

	if err := a.Send([]byte("x")); err != ErrTransportClosed {
		t.Fatalf("Send after Close: %v; want ErrTransportClosed", err)
	}

	if _, _, err := b.Get(); err != ErrTransportClosed {
		t.Fatalf("Get after Close: %v; want ErrTransportClosed", err)
	}
}

func TestNetTransportRoundTrip(t *testing.T) {
	connA, connB := net.Pipe()

	a := NewNetTransport(connA)
	b := NewNetTransport(connB)
	defer a.Close()
	defer b.Close()

	if err := a.Send([]byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	deadline := time.After(time.Second)

	for {
		data, ok, err := b.Get()
		if err != nil {
			t.Fatalf("Get: %v", err)
		}

		if ok {
			if string(data) != "hello" {
				t.Fatalf("Get() = %q; want \"hello\"", data)
			}

			break
		}

		select {
		case <-deadline:
			t.Fatal("Get() never produced the sent message")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestNetTransportCloseUnblocksGet(t *testing.T) {
	connA, connB := net.Pipe()

	a := NewNetTransport(connA)
	b := NewNetTransport(connB)
	defer connB.Close()

	a.Close()

	deadline := time.After(time.Second)

	for {
		if _, _, err := b.Get(); err != nil {
			return
		}

		select {
		case <-deadline:
			t.Fatal("Get() never reported the peer closing")
		case <-time.After(time.Millisecond):
		}
	}
}
