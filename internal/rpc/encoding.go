package rpc

// encoding.go turns Request/Response values into bytes and back. Two codecs are provided:
// TransparentEncoding, a native Go-to-Go binary round-trip over encoding/gob (standing in for the
// original protocol's pass-through binary encoding — no postcard-equivalent crate appears anywhere
// in the example corpus this module is grounded on, so the stdlib's own binary codec fills the
// role; see DESIGN.md), and JSONEncoding over encoding/json (again stdlib: none of the example
// repos import a third-party JSON library either).

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/sixteen-systems/lc3vm/internal/control"
)

func init() {
	for _, req := range []Request{
		ReqGetPC{}, ReqSetPC{}, ReqGetRegister{}, ReqSetRegister{}, ReqGetRegistersPSRAndPC{},
		ReqReadWord{}, ReqWriteWord{}, ReqStartPageWrite{}, ReqSendPageChunk{}, ReqFinishPageWrite{},
		ReqSetBreakpoint{}, ReqUnsetBreakpoint{}, ReqGetBreakpoints{}, ReqGetMaxBreakpoints{},
		ReqSetMemoryWatchpoint{}, ReqUnsetMemoryWatchpoint{}, ReqGetMemoryWatchpoints{},
		ReqGetMaxMemoryWatchpoints{}, ReqRunUntilEvent{}, ReqStep{}, ReqPause{}, ReqGetState{},
		ReqReset{}, ReqGetError{}, ReqGetGPIOStates{}, ReqGetGPIOReadings{}, ReqGetADCStates{},
		ReqGetADCReadings{}, ReqGetTimerStates{}, ReqGetTimerConfig{}, ReqGetPWMStates{},
		ReqGetPWMConfig{}, ReqGetClock{}, ReqGetInfo{}, ReqSetProgramMetadata{}, ReqGetProgramMetadata{},
	} {
		gob.Register(req)
	}

	for _, resp := range []Response{
		RespGetPC{}, RespSetPC{}, RespGetRegister{}, RespSetRegister{}, RespGetRegistersPSRAndPC{},
		RespReadWord{}, RespWriteWord{}, RespStartPageWrite{}, RespSendPageChunk{},
		RespFinishPageWrite{}, RespSetBreakpoint{}, RespUnsetBreakpoint{}, RespGetBreakpoints{},
		RespGetMaxBreakpoints{}, RespSetMemoryWatchpoint{}, RespUnsetMemoryWatchpoint{},
		RespGetMemoryWatchpoints{}, RespGetMaxMemoryWatchpoints{}, RespRunUntilEventAck{},
		RespRunUntilEvent{}, RespStep{}, RespPause{}, RespGetState{}, RespReset{}, RespGetError{},
		RespGetGPIOStates{}, RespGetGPIOReadings{}, RespGetADCStates{}, RespGetADCReadings{},
		RespGetTimerStates{}, RespGetTimerConfig{}, RespGetPWMStates{}, RespGetPWMConfig{},
		RespGetClock{}, RespGetInfo{}, RespSetProgramMetadata{}, RespGetProgramMetadata{}, RespError{},
	} {
		gob.Register(resp)
	}

	for _, event := range []control.Event{
		control.EventBreakpoint{}, control.EventMemoryWatch{}, control.EventError{},
		control.EventInterrupted{}, control.EventHalted{},
	} {
		gob.Register(event)
	}
}

// Encoder is the controller side of a codec: it turns outgoing Requests into bytes and incoming
// bytes back into Responses.
type Encoder interface {
	Encode(Request) ([]byte, error)
	Decode([]byte) (Response, error)
}

// Decoder is the device side of a codec: it turns incoming bytes into Requests and outgoing
// Responses into bytes.
type Decoder interface {
	Decode([]byte) (Request, error)
	Encode(Response) ([]byte, error)
}

var errEncoding = fmt.Errorf("rpc: encoding")

// requestEnvelope and responseEnvelope carry the interface payload through gob, which requires a
// concrete registered type behind every interface value it serializes.
type requestEnvelope struct{ Payload Request }

type responseEnvelope struct{ Payload Response }

// TransparentEncoding implements both Encoder and Decoder over encoding/gob.
type TransparentEncoding struct{}

func (TransparentEncoding) Encode(req Request) ([]byte, error) {
	var buf bytes.Buffer

	if err := gob.NewEncoder(&buf).Encode(requestEnvelope{Payload: req}); err != nil {
		return nil, fmt.Errorf("%w: gob: encode request: %w", errEncoding, err)
	}

	return buf.Bytes(), nil
}

func (TransparentEncoding) Decode(data []byte) (Response, error) {
	var env responseEnvelope

	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: gob: decode response: %w", errEncoding, err)
	}

	return env.Payload, nil
}

// decodeRequest and encodeResponse give TransparentEncoding double duty as a Decoder too (the
// device side of the same codec).
func (TransparentEncoding) decodeRequest(data []byte) (Request, error) {
	var env requestEnvelope

	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: gob: decode request: %w", errEncoding, err)
	}

	return env.Payload, nil
}

func (TransparentEncoding) encodeResponse(resp Response) ([]byte, error) {
	var buf bytes.Buffer

	if err := gob.NewEncoder(&buf).Encode(responseEnvelope{Payload: resp}); err != nil {
		return nil, fmt.Errorf("%w: gob: encode response: %w", errEncoding, err)
	}

	return buf.Bytes(), nil
}

// TransparentDecoding adapts TransparentEncoding to the Decoder interface's method names.
type TransparentDecoding struct{ TransparentEncoding }

func (d TransparentDecoding) Decode(data []byte) (Request, error) { return d.decodeRequest(data) }
func (d TransparentDecoding) Encode(resp Response) ([]byte, error) {
	return d.encodeResponse(resp)
}

// JSONEncoding implements Encoder over encoding/json, wrapping each payload in a Kind-tagged
// envelope so the receiver knows which concrete type to decode into (json, unlike gob, has no
// built-in interface registry).
type JSONEncoding struct{}

type jsonRequestEnvelope struct {
	Kind    RequestKind
	Payload json.RawMessage
}

type jsonResponseEnvelope struct {
	Kind    ResponseKind
	Payload json.RawMessage
}

func (JSONEncoding) Encode(req Request) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: json: encode request: %w", errEncoding, err)
	}

	return json.Marshal(jsonRequestEnvelope{Kind: req.Kind(), Payload: payload})
}

func (JSONEncoding) Decode(data []byte) (Response, error) {
	var env jsonResponseEnvelope

	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: json: decode response envelope: %w", errEncoding, err)
	}

	resp, err := newResponse(env.Kind)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(env.Payload, resp); err != nil {
		return nil, fmt.Errorf("%w: json: decode response: %w", errEncoding, err)
	}

	return derefResponse(resp), nil
}

func (JSONEncoding) decodeRequest(data []byte) (Request, error) {
	var env jsonRequestEnvelope

	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: json: decode request envelope: %w", errEncoding, err)
	}

	req, err := newRequest(env.Kind)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(env.Payload, req); err != nil {
		return nil, fmt.Errorf("%w: json: decode request: %w", errEncoding, err)
	}

	return derefRequest(req), nil
}

func (JSONEncoding) encodeResponse(resp Response) ([]byte, error) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: json: encode response: %w", errEncoding, err)
	}

	return json.Marshal(jsonResponseEnvelope{Kind: resp.Kind(), Payload: payload})
}

// JSONDecoding adapts JSONEncoding to the Decoder interface's method names.
type JSONDecoding struct{ JSONEncoding }

func (d JSONDecoding) Decode(data []byte) (Request, error) { return d.decodeRequest(data) }
func (d JSONDecoding) Encode(resp Response) ([]byte, error) {
	return d.encodeResponse(resp)
}

// newRequest returns an addressable pointer to the zero value of the request variant kind names,
// for json.Unmarshal to fill in.
func newRequest(kind RequestKind) (Request, error) {
	switch kind {
	case KindGetPC:
		return &ReqGetPC{}, nil
	case KindSetPC:
		return &ReqSetPC{}, nil
	case KindGetRegister:
		return &ReqGetRegister{}, nil
	case KindSetRegister:
		return &ReqSetRegister{}, nil
	case KindGetRegistersPSRAndPC:
		return &ReqGetRegistersPSRAndPC{}, nil
	case KindReadWord:
		return &ReqReadWord{}, nil
	case KindWriteWord:
		return &ReqWriteWord{}, nil
	case KindStartPageWrite:
		return &ReqStartPageWrite{}, nil
	case KindSendPageChunk:
		return &ReqSendPageChunk{}, nil
	case KindFinishPageWrite:
		return &ReqFinishPageWrite{}, nil
	case KindSetBreakpoint:
		return &ReqSetBreakpoint{}, nil
	case KindUnsetBreakpoint:
		return &ReqUnsetBreakpoint{}, nil
	case KindGetBreakpoints:
		return &ReqGetBreakpoints{}, nil
	case KindGetMaxBreakpoints:
		return &ReqGetMaxBreakpoints{}, nil
	case KindSetMemoryWatchpoint:
		return &ReqSetMemoryWatchpoint{}, nil
	case KindUnsetMemoryWatchpoint:
		return &ReqUnsetMemoryWatchpoint{}, nil
	case KindGetMemoryWatchpoints:
		return &ReqGetMemoryWatchpoints{}, nil
	case KindGetMaxMemoryWatchpoints:
		return &ReqGetMaxMemoryWatchpoints{}, nil
	case KindRunUntilEvent:
		return &ReqRunUntilEvent{}, nil
	case KindStep:
		return &ReqStep{}, nil
	case KindPause:
		return &ReqPause{}, nil
	case KindGetState:
		return &ReqGetState{}, nil
	case KindReset:
		return &ReqReset{}, nil
	case KindGetError:
		return &ReqGetError{}, nil
	case KindGetGPIOStates:
		return &ReqGetGPIOStates{}, nil
	case KindGetGPIOReadings:
		return &ReqGetGPIOReadings{}, nil
	case KindGetADCStates:
		return &ReqGetADCStates{}, nil
	case KindGetADCReadings:
		return &ReqGetADCReadings{}, nil
	case KindGetTimerStates:
		return &ReqGetTimerStates{}, nil
	case KindGetTimerConfig:
		return &ReqGetTimerConfig{}, nil
	case KindGetPWMStates:
		return &ReqGetPWMStates{}, nil
	case KindGetPWMConfig:
		return &ReqGetPWMConfig{}, nil
	case KindGetClock:
		return &ReqGetClock{}, nil
	case KindGetInfo:
		return &ReqGetInfo{}, nil
	case KindSetProgramMetadata:
		return &ReqSetProgramMetadata{}, nil
	case KindGetProgramMetadata:
		return &ReqGetProgramMetadata{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown request kind: %s", errEncoding, kind)
	}
}

// newResponse returns an addressable pointer to the zero value of the response variant kind
// names, for json.Unmarshal to fill in.
func newResponse(kind ResponseKind) (Response, error) {
	switch kind {
	case KindRespGetPC:
		return &RespGetPC{}, nil
	case KindRespSetPC:
		return &RespSetPC{}, nil
	case KindRespGetRegister:
		return &RespGetRegister{}, nil
	case KindRespSetRegister:
		return &RespSetRegister{}, nil
	case KindRespGetRegistersPSRAndPC:
		return &RespGetRegistersPSRAndPC{}, nil
	case KindRespReadWord:
		return &RespReadWord{}, nil
	case KindRespWriteWord:
		return &RespWriteWord{}, nil
	case KindRespStartPageWrite:
		return &RespStartPageWrite{}, nil
	case KindRespSendPageChunk:
		return &RespSendPageChunk{}, nil
	case KindRespFinishPageWrite:
		return &RespFinishPageWrite{}, nil
	case KindRespSetBreakpoint:
		return &RespSetBreakpoint{}, nil
	case KindRespUnsetBreakpoint:
		return &RespUnsetBreakpoint{}, nil
	case KindRespGetBreakpoints:
		return &RespGetBreakpoints{}, nil
	case KindRespGetMaxBreakpoints:
		return &RespGetMaxBreakpoints{}, nil
	case KindRespSetMemoryWatchpoint:
		return &RespSetMemoryWatchpoint{}, nil
	case KindRespUnsetMemoryWatchpoint:
		return &RespUnsetMemoryWatchpoint{}, nil
	case KindRespGetMemoryWatchpoints:
		return &RespGetMemoryWatchpoints{}, nil
	case KindRespGetMaxMemoryWatchpoints:
		return &RespGetMaxMemoryWatchpoints{}, nil
	case KindRespRunUntilEventAck:
		return &RespRunUntilEventAck{}, nil
	case KindRespRunUntilEvent:
		return &RespRunUntilEvent{}, nil
	case KindRespStep:
		return &RespStep{}, nil
	case KindRespPause:
		return &RespPause{}, nil
	case KindRespGetState:
		return &RespGetState{}, nil
	case KindRespReset:
		return &RespReset{}, nil
	case KindRespGetError:
		return &RespGetError{}, nil
	case KindRespGetGPIOStates:
		return &RespGetGPIOStates{}, nil
	case KindRespGetGPIOReadings:
		return &RespGetGPIOReadings{}, nil
	case KindRespGetADCStates:
		return &RespGetADCStates{}, nil
	case KindRespGetADCReadings:
		return &RespGetADCReadings{}, nil
	case KindRespGetTimerStates:
		return &RespGetTimerStates{}, nil
	case KindRespGetTimerConfig:
		return &RespGetTimerConfig{}, nil
	case KindRespGetPWMStates:
		return &RespGetPWMStates{}, nil
	case KindRespGetPWMConfig:
		return &RespGetPWMConfig{}, nil
	case KindRespGetClock:
		return &RespGetClock{}, nil
	case KindRespGetInfo:
		return &RespGetInfo{}, nil
	case KindRespSetProgramMetadata:
		return &RespSetProgramMetadata{}, nil
	case KindRespGetProgramMetadata:
		return &RespGetProgramMetadata{}, nil
	case KindRespError:
		return &RespError{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown response kind: %s", errEncoding, kind)
	}
}

// derefRequest and derefResponse convert the pointer newRequest/newResponse handed to
// json.Unmarshal back into the plain value every other codec and the dispatch switch expect.
func derefRequest(req Request) Request {
	v := reflect.ValueOf(req)
	if v.Kind() == reflect.Ptr {
		return v.Elem().Interface().(Request)
	}

	return req
}

func derefResponse(resp Response) Response {
	v := reflect.ValueOf(resp)
	if v.Kind() == reflect.Ptr {
		return v.Elem().Interface().(Response)
	}

	return resp
}
