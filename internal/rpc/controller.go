package rpc

// controller.go is the client side of the protocol: it turns Control-shaped method calls into
// Request/Response pairs carried over a Transport, and surfaces the device's run_until_event
// batches through its own local Future machinery, just as if the device were embedded in-process.

import (
	"fmt"
	"sync"

	"github.com/sixteen-systems/lc3vm/internal/control"
	"github.com/sixteen-systems/lc3vm/internal/vm"
)

var errController = fmt.Errorf("rpc: controller")

// Controller is a control.Control implementor that proxies every call across a Transport to a
// remote Device. It is safe for concurrent use; calls serialize on an internal mutex since the
// protocol carries at most one outstanding synchronous request at a time.
type Controller struct {
	mu sync.Mutex

	enc Encoder
	tx  Transport

	shared *control.SharedState

	// waitingForEvent is set once a RunUntilEvent request has been sent and cleared when its
	// resolution arrives. The original protocol guards the equivalent flag with an atomic despite
	// every access already happening under its own lock; ours is a plain bool under the same mutex
	// every other field uses (see DESIGN.md).
	waitingForEvent bool

	pendingResp Response
	gotResp     bool

	// page remembers the page passed to the last StartPageWrite: the Controller's PageToken is an
	// opaque zero value (its fields are private to package control), and FinishPageWrite's wire
	// message needs the page number, not the token, since the device tracks the token itself.
	page uint8
}

// NewController creates a controller speaking enc over tx.
func NewController(enc Encoder, tx Transport) *Controller {
	return &Controller{enc: enc, tx: tx, shared: control.NewSharedState()}
}

// Tick drains at most one pending response from the transport, either resolving an outstanding
// synchronous call or, for an unsolicited RunUntilEvent response, the controller's local future
// batch. The device's acknowledgement of a RunUntilEvent request is discarded. Callers must invoke
// this periodically for synchronous calls and run_until_event to make
// progress — the controller never blocks on the transport itself.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok, err := c.tx.Get()
	if err != nil || !ok {
		return
	}

	resp, err := c.enc.Decode(data)
	if err != nil {
		return
	}

	if ev, ok := resp.(RespRunUntilEvent); ok {
		c.waitingForEvent = false
		c.shared.Resolve(ev.Event)

		return
	}

	if _, ok := resp.(RespRunUntilEventAck); ok {
		return
	}

	c.pendingResp = resp
	c.gotResp = true
}

// call sends req and blocks, ticking the transport itself, until the paired response arrives.
// An unsolicited RunUntilEvent response observed along the way is resolved and skipped.
func (c *Controller) call(req Request) (Response, error) {
	c.mu.Lock()

	data, err := c.enc.Encode(req)
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: encode: %w", errController, err)
	}

	if err := c.tx.Send(data); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: send: %w", errController, err)
	}

	c.gotResp = false
	c.mu.Unlock()

	for {
		c.Tick()

		c.mu.Lock()
		if c.gotResp {
			resp := c.pendingResp
			c.gotResp = false
			c.mu.Unlock()

			return resp, nil
		}
		c.mu.Unlock()
	}
}

func (c *Controller) GetPC() vm.Word {
	resp, _ := c.call(ReqGetPC{})
	r, _ := resp.(RespGetPC)

	return r.PC
}

func (c *Controller) SetPC(addr vm.Word) { c.call(ReqSetPC{Addr: addr}) }

func (c *Controller) GetRegister(reg vm.GPR) vm.Word {
	resp, _ := c.call(ReqGetRegister{Reg: reg})
	r, _ := resp.(RespGetRegister)

	return r.Value
}

func (c *Controller) SetRegister(reg vm.GPR, data vm.Word) {
	c.call(ReqSetRegister{Reg: reg, Data: data})
}

func (c *Controller) GetRegistersPSRAndPC() ([vm.NumGPR]vm.Word, vm.Word, vm.Word) {
	resp, _ := c.call(ReqGetRegistersPSRAndPC{})
	r, _ := resp.(RespGetRegistersPSRAndPC)

	return r.Regs, r.PSR, r.PC
}

func (c *Controller) ReadWord(addr vm.Word) vm.Word {
	resp, _ := c.call(ReqReadWord{Addr: addr})
	r, _ := resp.(RespReadWord)

	return r.Value
}

func (c *Controller) WriteWord(addr, word vm.Word) {
	c.call(ReqWriteWord{Addr: addr, Word: word})
}

// StartPageWrite, SendPageChunk and FinishPageWrite mirror control.Control's Load API shape for
// interface compatibility, but over the wire the session token never leaves the device: the
// remote Device tracks its own current PageToken internally (see device.go), so the token argument
// here is accepted and ignored.

func (c *Controller) StartPageWrite(page uint8, checksum uint64) (control.PageToken, error) {
	resp, err := c.call(ReqStartPageWrite{Page: page, Checksum: checksum})
	if err != nil {
		return control.PageToken{}, err
	}

	if e, ok := resp.(RespError); ok {
		return control.PageToken{}, fmt.Errorf("%w: %s", errController, e.Err)
	}

	c.mu.Lock()
	c.page = page
	c.mu.Unlock()

	return control.PageToken{}, nil
}

func (c *Controller) SendPageChunk(_ control.PageToken, offset uint8, chunk [control.ChunkWords]vm.Word) (control.PageToken, error) {
	resp, err := c.call(ReqSendPageChunk{Offset: offset, Chunk: chunk})
	if err != nil {
		return control.PageToken{}, err
	}

	if e, ok := resp.(RespError); ok {
		return control.PageToken{}, fmt.Errorf("%w: %s", errController, e.Err)
	}

	return control.PageToken{}, nil
}

func (c *Controller) FinishPageWrite(_ control.PageToken) error {
	c.mu.Lock()
	page := c.page
	c.mu.Unlock()

	resp, err := c.call(ReqFinishPageWrite{Page: page})
	if err != nil {
		return err
	}

	if e, ok := resp.(RespError); ok {
		return fmt.Errorf("%w: %s", errController, e.Err)
	}

	return nil
}

func (c *Controller) SetBreakpoint(addr vm.Word) (int, error) {
	resp, err := c.call(ReqSetBreakpoint{Addr: addr})
	if err != nil {
		return 0, err
	}

	if e, ok := resp.(RespError); ok {
		return 0, fmt.Errorf("%w: %s", errController, e.Err)
	}

	r, _ := resp.(RespSetBreakpoint)

	return r.Idx, nil
}

func (c *Controller) UnsetBreakpoint(idx int) error {
	resp, err := c.call(ReqUnsetBreakpoint{Idx: idx})
	if err != nil {
		return err
	}

	if e, ok := resp.(RespError); ok {
		return fmt.Errorf("%w: %s", errController, e.Err)
	}

	return nil
}

func (c *Controller) GetBreakpoints() [control.MaxBreakpoints]*vm.Word {
	resp, _ := c.call(ReqGetBreakpoints{})
	r, _ := resp.(RespGetBreakpoints)

	return r.Breakpoints
}

func (c *Controller) GetMaxBreakpoints() int {
	resp, _ := c.call(ReqGetMaxBreakpoints{})
	r, _ := resp.(RespGetMaxBreakpoints)

	return r.Max
}

func (c *Controller) SetMemoryWatchpoint(addr vm.Word) (int, error) {
	resp, err := c.call(ReqSetMemoryWatchpoint{Addr: addr})
	if err != nil {
		return 0, err
	}

	if e, ok := resp.(RespError); ok {
		return 0, fmt.Errorf("%w: %s", errController, e.Err)
	}

	r, _ := resp.(RespSetMemoryWatchpoint)

	return r.Idx, nil
}

func (c *Controller) UnsetMemoryWatchpoint(idx int) error {
	resp, err := c.call(ReqUnsetMemoryWatchpoint{Idx: idx})
	if err != nil {
		return err
	}

	if e, ok := resp.(RespError); ok {
		return fmt.Errorf("%w: %s", errController, e.Err)
	}

	return nil
}

func (c *Controller) GetMemoryWatchpoints() [control.MaxWatchpoints]*control.WatchEntry {
	resp, _ := c.call(ReqGetMemoryWatchpoints{})
	r, _ := resp.(RespGetMemoryWatchpoints)

	return r.Watchpoints
}

func (c *Controller) GetMaxMemoryWatchpoints() int {
	resp, _ := c.call(ReqGetMaxMemoryWatchpoints{})
	r, _ := resp.(RespGetMaxMemoryWatchpoints)

	return r.Max
}

// RunUntilEvent joins (or opens) the controller's local future batch. If a run_until_event request
// is already outstanding, a new future joins with no network traffic, mirroring the façade's own
// batching rule; otherwise the request is sent and Tick will eventually resolve the batch when the
// device's unsolicited response arrives.
func (c *Controller) RunUntilEvent() *control.Future {
	c.mu.Lock()

	if c.waitingForEvent {
		c.mu.Unlock()
		return c.shared.NewFuture()
	}

	c.waitingForEvent = true
	c.mu.Unlock()

	future := c.shared.NewFuture()

	data, err := c.enc.Encode(ReqRunUntilEvent{})
	if err == nil {
		_ = c.tx.Send(data)
	}

	return future
}

func (c *Controller) Step() (control.Event, bool) {
	resp, _ := c.call(ReqStep{})
	r, _ := resp.(RespStep)

	return r.Event, r.Fired
}

func (c *Controller) Pause() { c.call(ReqPause{}) }

func (c *Controller) GetState() control.State {
	resp, _ := c.call(ReqGetState{})
	r, _ := resp.(RespGetState)

	return r.State
}

// Reset resets the controller's local shared state before sending the request, dropping any
// futures whose batch the device is about to invalidate.
func (c *Controller) Reset() {
	c.shared.Reset()

	c.mu.Lock()
	c.waitingForEvent = false
	c.mu.Unlock()

	c.call(ReqReset{})
}

func (c *Controller) GetError() error {
	resp, _ := c.call(ReqGetError{})
	r, _ := resp.(RespGetError)

	if r.Err == "" {
		return nil
	}

	return fmt.Errorf("%s", r.Err)
}

func (c *Controller) GetGPIOStates() [vm.NumGPIOPins]vm.GPIOState {
	resp, _ := c.call(ReqGetGPIOStates{})
	r, _ := resp.(RespGetGPIOStates)

	return r.States
}

func (c *Controller) GetGPIOReadings() [vm.NumGPIOPins]control.GPIOReading {
	resp, _ := c.call(ReqGetGPIOReadings{})
	r, _ := resp.(RespGetGPIOReadings)

	var out [vm.NumGPIOPins]control.GPIOReading
	for i, w := range r.Readings {
		out[i] = control.GPIOReading{Value: w.Value, Err: wireErr(w.Err)}
	}

	return out
}

func (c *Controller) GetADCStates() [vm.NumADCPins]vm.ADCState {
	resp, _ := c.call(ReqGetADCStates{})
	r, _ := resp.(RespGetADCStates)

	return r.States
}

func (c *Controller) GetADCReadings() [vm.NumADCPins]control.ADCReading {
	resp, _ := c.call(ReqGetADCReadings{})
	r, _ := resp.(RespGetADCReadings)

	var out [vm.NumADCPins]control.ADCReading
	for i, w := range r.Readings {
		out[i] = control.ADCReading{Value: w.Value, Err: wireErr(w.Err)}
	}

	return out
}

func (c *Controller) GetTimerStates() [vm.NumTimers]vm.TimerState {
	resp, _ := c.call(ReqGetTimerStates{})
	r, _ := resp.(RespGetTimerStates)

	return r.States
}

func (c *Controller) GetTimerConfig() [vm.NumTimers]vm.Word {
	resp, _ := c.call(ReqGetTimerConfig{})
	r, _ := resp.(RespGetTimerConfig)

	return r.Periods
}

func (c *Controller) GetPWMStates() [vm.NumPWMChannels]vm.PWMState {
	resp, _ := c.call(ReqGetPWMStates{})
	r, _ := resp.(RespGetPWMStates)

	return r.States
}

func (c *Controller) GetPWMConfig() [vm.NumPWMChannels]uint8 {
	resp, _ := c.call(ReqGetPWMConfig{})
	r, _ := resp.(RespGetPWMConfig)

	return r.Duties
}

func (c *Controller) GetClock() vm.Word {
	resp, _ := c.call(ReqGetClock{})
	r, _ := resp.(RespGetClock)

	return r.MS
}

func (c *Controller) GetInfo() control.DeviceInfo {
	resp, _ := c.call(ReqGetInfo{})
	r, _ := resp.(RespGetInfo)

	return r.Info
}

func (c *Controller) SetProgramMetadata(md vm.ProgramMetadata) {
	c.call(ReqSetProgramMetadata{Metadata: md})
}

func (c *Controller) ProgramMetadata() vm.ProgramMetadata {
	resp, _ := c.call(ReqGetProgramMetadata{})
	r, _ := resp.(RespGetProgramMetadata)

	return r.Metadata
}

func wireErr(msg string) error {
	if msg == "" {
		return nil
	}

	return fmt.Errorf("%s", msg)
}
