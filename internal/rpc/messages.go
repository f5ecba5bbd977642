// Package rpc implements the wire protocol a remote debugger speaks to a running simulator:
// message types, their encodings, the transports that carry them, and the Controller/Device pair
// that drive the protocol from either end.
package rpc

// messages.go defines the closed Request/Response message catalogue as a Go tagged union: a Kind
// byte enum plus one concrete struct per variant, matching the original protocol's request and
// response enums field-for-field. There is no message Id and no Tick request — Tick is a purely
// local, not-on-the-wire call every Controller and Device makes on their own side.

import (
	"github.com/sixteen-systems/lc3vm/internal/control"
	"github.com/sixteen-systems/lc3vm/internal/vm"
)

// RequestKind discriminates the concrete type of a Request.
type RequestKind uint8

// Request variants, in protocol order.
const (
	KindGetPC RequestKind = iota
	KindSetPC
	KindGetRegister
	KindSetRegister
	KindGetRegistersPSRAndPC
	KindReadWord
	KindWriteWord
	KindStartPageWrite
	KindSendPageChunk
	KindFinishPageWrite
	KindSetBreakpoint
	KindUnsetBreakpoint
	KindGetBreakpoints
	KindGetMaxBreakpoints
	KindSetMemoryWatchpoint
	KindUnsetMemoryWatchpoint
	KindGetMemoryWatchpoints
	KindGetMaxMemoryWatchpoints
	KindRunUntilEvent
	KindStep
	KindPause
	KindGetState
	KindReset
	KindGetError
	KindGetGPIOStates
	KindGetGPIOReadings
	KindGetADCStates
	KindGetADCReadings
	KindGetTimerStates
	KindGetTimerConfig
	KindGetPWMStates
	KindGetPWMConfig
	KindGetClock
	KindGetInfo
	KindSetProgramMetadata
	KindGetProgramMetadata
)

var requestKindNames = [...]string{
	"GetPC", "SetPC", "GetRegister", "SetRegister", "GetRegistersPSRAndPC", "ReadWord", "WriteWord",
	"StartPageWrite", "SendPageChunk", "FinishPageWrite", "SetBreakpoint", "UnsetBreakpoint",
	"GetBreakpoints", "GetMaxBreakpoints", "SetMemoryWatchpoint", "UnsetMemoryWatchpoint",
	"GetMemoryWatchpoints", "GetMaxMemoryWatchpoints", "RunUntilEvent", "Step", "Pause", "GetState",
	"Reset", "GetError", "GetGPIOStates", "GetGPIOReadings", "GetADCStates", "GetADCReadings",
	"GetTimerStates", "GetTimerConfig", "GetPWMStates", "GetPWMConfig", "GetClock", "GetInfo",
	"SetProgramMetadata", "GetProgramMetadata",
}

func (k RequestKind) String() string {
	if int(k) < len(requestKindNames) {
		return requestKindNames[k]
	}

	return "UNKNOWN"
}

// ResponseKind discriminates the concrete type of a Response.
type ResponseKind uint8

// Response variants. Mirrors RequestKind one-for-one, plus the RunUntilEvent ack/event pair that
// has no single-shot analogue on the request side.
const (
	KindRespGetPC ResponseKind = iota
	KindRespSetPC
	KindRespGetRegister
	KindRespSetRegister
	KindRespGetRegistersPSRAndPC
	KindRespReadWord
	KindRespWriteWord
	KindRespStartPageWrite
	KindRespSendPageChunk
	KindRespFinishPageWrite
	KindRespSetBreakpoint
	KindRespUnsetBreakpoint
	KindRespGetBreakpoints
	KindRespGetMaxBreakpoints
	KindRespSetMemoryWatchpoint
	KindRespUnsetMemoryWatchpoint
	KindRespGetMemoryWatchpoints
	KindRespGetMaxMemoryWatchpoints
	KindRespRunUntilEventAck
	KindRespRunUntilEvent
	KindRespStep
	KindRespPause
	KindRespGetState
	KindRespReset
	KindRespGetError
	KindRespGetGPIOStates
	KindRespGetGPIOReadings
	KindRespGetADCStates
	KindRespGetADCReadings
	KindRespGetTimerStates
	KindRespGetTimerConfig
	KindRespGetPWMStates
	KindRespGetPWMConfig
	KindRespGetClock
	KindRespGetInfo
	KindRespSetProgramMetadata
	KindRespGetProgramMetadata
	KindRespError
)

var responseKindNames = [...]string{
	"GetPC", "SetPC", "GetRegister", "SetRegister", "GetRegistersPSRAndPC", "ReadWord", "WriteWord",
	"StartPageWrite", "SendPageChunk", "FinishPageWrite", "SetBreakpoint", "UnsetBreakpoint",
	"GetBreakpoints", "GetMaxBreakpoints", "SetMemoryWatchpoint", "UnsetMemoryWatchpoint",
	"GetMemoryWatchpoints", "GetMaxMemoryWatchpoints", "RunUntilEventAck", "RunUntilEvent", "Step",
	"Pause", "GetState", "Reset", "GetError", "GetGPIOStates", "GetGPIOReadings", "GetADCStates",
	"GetADCReadings", "GetTimerStates", "GetTimerConfig", "GetPWMStates", "GetPWMConfig", "GetClock",
	"GetInfo", "SetProgramMetadata", "GetProgramMetadata", "Error",
}

func (k ResponseKind) String() string {
	if int(k) < len(responseKindNames) {
		return responseKindNames[k]
	}

	return "UNKNOWN"
}

// Request is implemented by every request variant.
type Request interface {
	Kind() RequestKind
}

// Response is implemented by every response variant.
type Response interface {
	Kind() ResponseKind
}

// GPIOReadingWire and ADCReadingWire carry a peripheral reading over the wire: Go errors do not
// round-trip through gob/json, so the error is flattened to its message string (empty means nil).
type GPIOReadingWire struct {
	Value bool
	Err   string
}

type ADCReadingWire struct {
	Value uint8
	Err   string
}

func gpioReadingToWire(r control.GPIOReading) GPIOReadingWire {
	w := GPIOReadingWire{Value: r.Value}
	if r.Err != nil {
		w.Err = r.Err.Error()
	}

	return w
}

func adcReadingToWire(r control.ADCReading) ADCReadingWire {
	w := ADCReadingWire{Value: r.Value}
	if r.Err != nil {
		w.Err = r.Err.Error()
	}

	return w
}

// Requests.

type ReqGetPC struct{}

func (ReqGetPC) Kind() RequestKind { return KindGetPC }

type ReqSetPC struct{ Addr vm.Word }

func (ReqSetPC) Kind() RequestKind { return KindSetPC }

type ReqGetRegister struct{ Reg vm.GPR }

func (ReqGetRegister) Kind() RequestKind { return KindGetRegister }

type ReqSetRegister struct {
	Reg  vm.GPR
	Data vm.Word
}

func (ReqSetRegister) Kind() RequestKind { return KindSetRegister }

type ReqGetRegistersPSRAndPC struct{}

func (ReqGetRegistersPSRAndPC) Kind() RequestKind { return KindGetRegistersPSRAndPC }

type ReqReadWord struct{ Addr vm.Word }

func (ReqReadWord) Kind() RequestKind { return KindReadWord }

type ReqWriteWord struct {
	Addr vm.Word
	Word vm.Word
}

func (ReqWriteWord) Kind() RequestKind { return KindWriteWord }

type ReqStartPageWrite struct {
	Page     uint8
	Checksum uint64
}

func (ReqStartPageWrite) Kind() RequestKind { return KindStartPageWrite }

type ReqSendPageChunk struct {
	Offset uint8
	Chunk  [control.ChunkWords]vm.Word
}

func (ReqSendPageChunk) Kind() RequestKind { return KindSendPageChunk }

type ReqFinishPageWrite struct{ Page uint8 }

func (ReqFinishPageWrite) Kind() RequestKind { return KindFinishPageWrite }

type ReqSetBreakpoint struct{ Addr vm.Word }

func (ReqSetBreakpoint) Kind() RequestKind { return KindSetBreakpoint }

type ReqUnsetBreakpoint struct{ Idx int }

func (ReqUnsetBreakpoint) Kind() RequestKind { return KindUnsetBreakpoint }

type ReqGetBreakpoints struct{}

func (ReqGetBreakpoints) Kind() RequestKind { return KindGetBreakpoints }

type ReqGetMaxBreakpoints struct{}

func (ReqGetMaxBreakpoints) Kind() RequestKind { return KindGetMaxBreakpoints }

type ReqSetMemoryWatchpoint struct{ Addr vm.Word }

func (ReqSetMemoryWatchpoint) Kind() RequestKind { return KindSetMemoryWatchpoint }

type ReqUnsetMemoryWatchpoint struct{ Idx int }

func (ReqUnsetMemoryWatchpoint) Kind() RequestKind { return KindUnsetMemoryWatchpoint }

type ReqGetMemoryWatchpoints struct{}

func (ReqGetMemoryWatchpoints) Kind() RequestKind { return KindGetMemoryWatchpoints }

type ReqGetMaxMemoryWatchpoints struct{}

func (ReqGetMaxMemoryWatchpoints) Kind() RequestKind { return KindGetMaxMemoryWatchpoints }

type ReqRunUntilEvent struct{}

func (ReqRunUntilEvent) Kind() RequestKind { return KindRunUntilEvent }

type ReqStep struct{}

func (ReqStep) Kind() RequestKind { return KindStep }

type ReqPause struct{}

func (ReqPause) Kind() RequestKind { return KindPause }

type ReqGetState struct{}

func (ReqGetState) Kind() RequestKind { return KindGetState }

type ReqReset struct{}

func (ReqReset) Kind() RequestKind { return KindReset }

type ReqGetError struct{}

func (ReqGetError) Kind() RequestKind { return KindGetError }

type ReqGetGPIOStates struct{}

func (ReqGetGPIOStates) Kind() RequestKind { return KindGetGPIOStates }

type ReqGetGPIOReadings struct{}

func (ReqGetGPIOReadings) Kind() RequestKind { return KindGetGPIOReadings }

type ReqGetADCStates struct{}

func (ReqGetADCStates) Kind() RequestKind { return KindGetADCStates }

type ReqGetADCReadings struct{}

func (ReqGetADCReadings) Kind() RequestKind { return KindGetADCReadings }

type ReqGetTimerStates struct{}

func (ReqGetTimerStates) Kind() RequestKind { return KindGetTimerStates }

type ReqGetTimerConfig struct{}

func (ReqGetTimerConfig) Kind() RequestKind { return KindGetTimerConfig }

type ReqGetPWMStates struct{}

func (ReqGetPWMStates) Kind() RequestKind { return KindGetPWMStates }

type ReqGetPWMConfig struct{}

func (ReqGetPWMConfig) Kind() RequestKind { return KindGetPWMConfig }

type ReqGetClock struct{}

func (ReqGetClock) Kind() RequestKind { return KindGetClock }

type ReqGetInfo struct{}

func (ReqGetInfo) Kind() RequestKind { return KindGetInfo }

type ReqSetProgramMetadata struct{ Metadata vm.ProgramMetadata }

func (ReqSetProgramMetadata) Kind() RequestKind { return KindSetProgramMetadata }

type ReqGetProgramMetadata struct{}

func (ReqGetProgramMetadata) Kind() RequestKind { return KindGetProgramMetadata }

// Responses.

type RespGetPC struct{ PC vm.Word }

func (RespGetPC) Kind() ResponseKind { return KindRespGetPC }

type RespSetPC struct{}

func (RespSetPC) Kind() ResponseKind { return KindRespSetPC }

type RespGetRegister struct{ Value vm.Word }

func (RespGetRegister) Kind() ResponseKind { return KindRespGetRegister }

type RespSetRegister struct{}

func (RespSetRegister) Kind() ResponseKind { return KindRespSetRegister }

type RespGetRegistersPSRAndPC struct {
	Regs [vm.NumGPR]vm.Word
	PSR  vm.Word
	PC   vm.Word
}

func (RespGetRegistersPSRAndPC) Kind() ResponseKind { return KindRespGetRegistersPSRAndPC }

type RespReadWord struct{ Value vm.Word }

func (RespReadWord) Kind() ResponseKind { return KindRespReadWord }

type RespWriteWord struct{}

func (RespWriteWord) Kind() ResponseKind { return KindRespWriteWord }

type RespStartPageWrite struct{}

func (RespStartPageWrite) Kind() ResponseKind { return KindRespStartPageWrite }

type RespSendPageChunk struct{}

func (RespSendPageChunk) Kind() ResponseKind { return KindRespSendPageChunk }

type RespFinishPageWrite struct{}

func (RespFinishPageWrite) Kind() ResponseKind { return KindRespFinishPageWrite }

type RespSetBreakpoint struct{ Idx int }

func (RespSetBreakpoint) Kind() ResponseKind { return KindRespSetBreakpoint }

type RespUnsetBreakpoint struct{}

func (RespUnsetBreakpoint) Kind() ResponseKind { return KindRespUnsetBreakpoint }

type RespGetBreakpoints struct {
	Breakpoints [control.MaxBreakpoints]*vm.Word
}

func (RespGetBreakpoints) Kind() ResponseKind { return KindRespGetBreakpoints }

type RespGetMaxBreakpoints struct{ Max int }

func (RespGetMaxBreakpoints) Kind() ResponseKind { return KindRespGetMaxBreakpoints }

type RespSetMemoryWatchpoint struct{ Idx int }

func (RespSetMemoryWatchpoint) Kind() ResponseKind { return KindRespSetMemoryWatchpoint }

type RespUnsetMemoryWatchpoint struct{}

func (RespUnsetMemoryWatchpoint) Kind() ResponseKind { return KindRespUnsetMemoryWatchpoint }

type RespGetMemoryWatchpoints struct {
	Watchpoints [control.MaxWatchpoints]*control.WatchEntry
}

func (RespGetMemoryWatchpoints) Kind() ResponseKind { return KindRespGetMemoryWatchpoints }

type RespGetMaxMemoryWatchpoints struct{ Max int }

func (RespGetMaxMemoryWatchpoints) Kind() ResponseKind { return KindRespGetMaxMemoryWatchpoints }

// RespRunUntilEventAck acknowledges that a run_until_event request joined (or opened) a batch.
type RespRunUntilEventAck struct{}

func (RespRunUntilEventAck) Kind() ResponseKind { return KindRespRunUntilEventAck }

// RespRunUntilEvent carries the event a run_until_event batch resolved to. It is sent
// unsolicited — not paired one-for-one with a ReqRunUntilEvent — whenever the device's pending
// future becomes ready.
type RespRunUntilEvent struct{ Event control.Event }

func (RespRunUntilEvent) Kind() ResponseKind { return KindRespRunUntilEvent }

type RespStep struct {
	Event control.Event
	Fired bool
}

func (RespStep) Kind() ResponseKind { return KindRespStep }

type RespPause struct{}

func (RespPause) Kind() ResponseKind { return KindRespPause }

type RespGetState struct{ State control.State }

func (RespGetState) Kind() ResponseKind { return KindRespGetState }

type RespReset struct{}

func (RespReset) Kind() ResponseKind { return KindRespReset }

// RespGetError carries the machine's last recorded error, flattened to its message (empty for nil).
type RespGetError struct{ Err string }

func (RespGetError) Kind() ResponseKind { return KindRespGetError }

type RespGetGPIOStates struct{ States [vm.NumGPIOPins]vm.GPIOState }

func (RespGetGPIOStates) Kind() ResponseKind { return KindRespGetGPIOStates }

type RespGetGPIOReadings struct{ Readings [vm.NumGPIOPins]GPIOReadingWire }

func (RespGetGPIOReadings) Kind() ResponseKind { return KindRespGetGPIOReadings }

type RespGetADCStates struct{ States [vm.NumADCPins]vm.ADCState }

func (RespGetADCStates) Kind() ResponseKind { return KindRespGetADCStates }

type RespGetADCReadings struct{ Readings [vm.NumADCPins]ADCReadingWire }

func (RespGetADCReadings) Kind() ResponseKind { return KindRespGetADCReadings }

type RespGetTimerStates struct{ States [vm.NumTimers]vm.TimerState }

func (RespGetTimerStates) Kind() ResponseKind { return KindRespGetTimerStates }

type RespGetTimerConfig struct{ Periods [vm.NumTimers]vm.Word }

func (RespGetTimerConfig) Kind() ResponseKind { return KindRespGetTimerConfig }

type RespGetPWMStates struct{ States [vm.NumPWMChannels]vm.PWMState }

func (RespGetPWMStates) Kind() ResponseKind { return KindRespGetPWMStates }

type RespGetPWMConfig struct{ Duties [vm.NumPWMChannels]uint8 }

func (RespGetPWMConfig) Kind() ResponseKind { return KindRespGetPWMConfig }

type RespGetClock struct{ MS vm.Word }

func (RespGetClock) Kind() ResponseKind { return KindRespGetClock }

type RespGetInfo struct{ Info control.DeviceInfo }

func (RespGetInfo) Kind() ResponseKind { return KindRespGetInfo }

type RespSetProgramMetadata struct{}

func (RespSetProgramMetadata) Kind() ResponseKind { return KindRespSetProgramMetadata }

type RespGetProgramMetadata struct{ Metadata vm.ProgramMetadata }

func (RespGetProgramMetadata) Kind() ResponseKind { return KindRespGetProgramMetadata }

// RespError is returned instead of a request's ordinary response when the device cannot fulfill
// it — an out-of-sequence Load API call, or a RunUntilEvent request arriving while one is already
// pending.
type RespError struct {
	Request RequestKind
	Err     string
}

func (RespError) Kind() ResponseKind { return KindRespError }
