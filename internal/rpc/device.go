package rpc

// device.go is the server side of the protocol: it decodes requests off a Transport, dispatches
// each to a control.Control, and encodes the paired response back. Device also owns the one piece
// of state the wire protocol deliberately omits: the current Load API PageToken, since
// SendPageChunk/FinishPageWrite requests carry only an offset or page number, not the token that
// proves which session they belong to.

import (
	"fmt"

	"github.com/sixteen-systems/lc3vm/internal/control"
	"github.com/sixteen-systems/lc3vm/internal/vm"
)

// Device drives one control.Control on behalf of a remote Controller.
type Device struct {
	dec Decoder
	tx  Transport

	tok     control.PageToken
	tokOpen bool

	pending *control.Future
}

// NewDevice creates a device speaking dec over tx.
func NewDevice(dec Decoder, tx Transport) *Device {
	return &Device{dec: dec, tx: tx}
}

// Step advances the device by one unit of work: it ticks ctrl, checks any pending run_until_event
// future, and drains every request currently waiting on the transport. Callers drive the
// simulation by calling Step repeatedly, typically once per host timer tick.
func (d *Device) Step(ctrl control.Control) {
	ctrl.Tick()

	if d.pending != nil {
		if event, ok := d.pending.Poll(); ok {
			d.pending = nil
			d.send(RespRunUntilEvent{Event: event})
		}
	}

	for {
		data, ok, err := d.tx.Get()
		if err != nil || !ok {
			return
		}

		req, err := d.dec.Decode(data)
		if err != nil {
			continue
		}

		d.dispatch(ctrl, req)
	}
}

func (d *Device) send(resp Response) {
	data, err := d.dec.Encode(resp)
	if err != nil {
		return
	}

	_ = d.tx.Send(data)
}

func (d *Device) sendErr(kind RequestKind, err error) {
	d.send(RespError{Request: kind, Err: err.Error()})
}

// dispatch translates one decoded request into the matching Control call and response. The Load
// API requests are handled directly against the device's own tracked PageToken rather than simply
// forwarding a token the wire protocol never carried.
func (d *Device) dispatch(ctrl control.Control, req Request) {
	switch r := req.(type) {
	case ReqGetPC:
		d.send(RespGetPC{PC: ctrl.GetPC()})
	case ReqSetPC:
		ctrl.SetPC(r.Addr)
		d.send(RespSetPC{})
	case ReqGetRegister:
		d.send(RespGetRegister{Value: ctrl.GetRegister(r.Reg)})
	case ReqSetRegister:
		ctrl.SetRegister(r.Reg, r.Data)
		d.send(RespSetRegister{})
	case ReqGetRegistersPSRAndPC:
		regs, psr, pc := ctrl.GetRegistersPSRAndPC()
		d.send(RespGetRegistersPSRAndPC{Regs: regs, PSR: psr, PC: pc})
	case ReqReadWord:
		d.send(RespReadWord{Value: ctrl.ReadWord(r.Addr)})
	case ReqWriteWord:
		ctrl.WriteWord(r.Addr, r.Word)
		d.send(RespWriteWord{})

	case ReqStartPageWrite:
		tok, err := ctrl.StartPageWrite(r.Page, r.Checksum)
		if err != nil {
			d.sendErr(r.Kind(), err)
			return
		}

		d.tok, d.tokOpen = tok, true
		d.send(RespStartPageWrite{})
	case ReqSendPageChunk:
		if !d.tokOpen {
			d.sendErr(r.Kind(), control.ErrNoSession)
			return
		}

		tok, err := ctrl.SendPageChunk(d.tok, r.Offset, r.Chunk)
		if err != nil {
			d.sendErr(r.Kind(), err)
			return
		}

		d.tok = tok
		d.send(RespSendPageChunk{})
	case ReqFinishPageWrite:
		if !d.tokOpen {
			d.sendErr(r.Kind(), control.ErrNoSession)
			return
		}

		err := ctrl.FinishPageWrite(d.tok)
		d.tokOpen = false

		if err != nil {
			d.sendErr(r.Kind(), err)
			return
		}

		d.send(RespFinishPageWrite{})

	case ReqSetBreakpoint:
		idx, err := ctrl.SetBreakpoint(r.Addr)
		if err != nil {
			d.sendErr(r.Kind(), err)
			return
		}

		d.send(RespSetBreakpoint{Idx: idx})
	case ReqUnsetBreakpoint:
		if err := ctrl.UnsetBreakpoint(r.Idx); err != nil {
			d.sendErr(r.Kind(), err)
			return
		}

		d.send(RespUnsetBreakpoint{})
	case ReqGetBreakpoints:
		d.send(RespGetBreakpoints{Breakpoints: ctrl.GetBreakpoints()})
	case ReqGetMaxBreakpoints:
		d.send(RespGetMaxBreakpoints{Max: ctrl.GetMaxBreakpoints()})

	case ReqSetMemoryWatchpoint:
		idx, err := ctrl.SetMemoryWatchpoint(r.Addr)
		if err != nil {
			d.sendErr(r.Kind(), err)
			return
		}

		d.send(RespSetMemoryWatchpoint{Idx: idx})
	case ReqUnsetMemoryWatchpoint:
		if err := ctrl.UnsetMemoryWatchpoint(r.Idx); err != nil {
			d.sendErr(r.Kind(), err)
			return
		}

		d.send(RespUnsetMemoryWatchpoint{})
	case ReqGetMemoryWatchpoints:
		d.send(RespGetMemoryWatchpoints{Watchpoints: ctrl.GetMemoryWatchpoints()})
	case ReqGetMaxMemoryWatchpoints:
		d.send(RespGetMaxMemoryWatchpoints{Max: ctrl.GetMaxMemoryWatchpoints()})

	case ReqRunUntilEvent:
		if d.pending != nil {
			d.sendErr(r.Kind(), fmt.Errorf("%w: run_until_event already pending", errEncoding))
			return
		}

		d.pending = ctrl.RunUntilEvent()
		d.send(RespRunUntilEventAck{})
	case ReqStep:
		event, fired := ctrl.Step()
		d.send(RespStep{Event: event, Fired: fired})
	case ReqPause:
		ctrl.Pause()
		d.send(RespPause{})
	case ReqGetState:
		d.send(RespGetState{State: ctrl.GetState()})
	case ReqReset:
		d.pending = nil
		d.tokOpen = false
		ctrl.Reset()
		d.send(RespReset{})
	case ReqGetError:
		err := ctrl.GetError()
		msg := ""

		if err != nil {
			msg = err.Error()
		}

		d.send(RespGetError{Err: msg})

	case ReqGetGPIOStates:
		d.send(RespGetGPIOStates{States: ctrl.GetGPIOStates()})
	case ReqGetGPIOReadings:
		readings := ctrl.GetGPIOReadings()

		var wire [vm.NumGPIOPins]GPIOReadingWire
		for i, rd := range readings {
			wire[i] = gpioReadingToWire(rd)
		}

		d.send(RespGetGPIOReadings{Readings: wire})
	case ReqGetADCStates:
		d.send(RespGetADCStates{States: ctrl.GetADCStates()})
	case ReqGetADCReadings:
		readings := ctrl.GetADCReadings()

		var wire [vm.NumADCPins]ADCReadingWire
		for i, rd := range readings {
			wire[i] = adcReadingToWire(rd)
		}

		d.send(RespGetADCReadings{Readings: wire})
	case ReqGetTimerStates:
		d.send(RespGetTimerStates{States: ctrl.GetTimerStates()})
	case ReqGetTimerConfig:
		d.send(RespGetTimerConfig{Periods: ctrl.GetTimerConfig()})
	case ReqGetPWMStates:
		d.send(RespGetPWMStates{States: ctrl.GetPWMStates()})
	case ReqGetPWMConfig:
		d.send(RespGetPWMConfig{Duties: ctrl.GetPWMConfig()})
	case ReqGetClock:
		d.send(RespGetClock{MS: ctrl.GetClock()})

	case ReqGetInfo:
		d.send(RespGetInfo{Info: ctrl.GetInfo()})
	case ReqSetProgramMetadata:
		ctrl.SetProgramMetadata(r.Metadata)
		d.send(RespSetProgramMetadata{})
	case ReqGetProgramMetadata:
		d.send(RespGetProgramMetadata{Metadata: ctrl.ProgramMetadata()})

	default:
		d.sendErr(req.Kind(), fmt.Errorf("%w: unhandled request kind: %s", errEncoding, req.Kind()))
	}
}
