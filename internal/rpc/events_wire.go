package rpc

// events_wire.go gives control.Event a JSON wire form. gob handles the interface natively once its
// concrete types are registered (see encoding.go's init), but encoding/json has no type registry:
// decoding into an interface field otherwise produces a bare map, not the original concrete event.
// RespRunUntilEvent and RespStep route their Event field through marshalEvent/unmarshalEvent to
// keep JSON and gob behaviorally identical.

import (
	"encoding/json"
	"fmt"

	"github.com/sixteen-systems/lc3vm/internal/control"
)

type eventKind uint8

const (
	eventKindNone eventKind = iota
	eventKindBreakpoint
	eventKindMemoryWatch
	eventKindError
	eventKindInterrupted
	eventKindHalted
)

type eventEnvelope struct {
	Kind    eventKind
	Payload json.RawMessage
}

func marshalEvent(ev control.Event) (json.RawMessage, error) {
	if ev == nil {
		return json.Marshal(eventEnvelope{Kind: eventKindNone})
	}

	var (
		kind    eventKind
		payload any
	)

	switch e := ev.(type) {
	case control.EventBreakpoint:
		kind, payload = eventKindBreakpoint, e
	case control.EventMemoryWatch:
		kind, payload = eventKindMemoryWatch, e
	case control.EventError:
		kind, payload = eventKindError, e
	case control.EventInterrupted:
		kind, payload = eventKindInterrupted, e
	case control.EventHalted:
		kind, payload = eventKindHalted, e
	default:
		return nil, fmt.Errorf("%w: unknown event type: %T", errEncoding, ev)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: json: encode event: %w", errEncoding, err)
	}

	return json.Marshal(eventEnvelope{Kind: kind, Payload: raw})
}

func unmarshalEvent(data json.RawMessage) (control.Event, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: json: decode event envelope: %w", errEncoding, err)
	}

	switch env.Kind {
	case eventKindNone:
		return nil, nil
	case eventKindBreakpoint:
		var e control.EventBreakpoint
		err := json.Unmarshal(env.Payload, &e)

		return e, wrapEventErr(err)
	case eventKindMemoryWatch:
		var e control.EventMemoryWatch
		err := json.Unmarshal(env.Payload, &e)

		return e, wrapEventErr(err)
	case eventKindError:
		var e control.EventError
		err := json.Unmarshal(env.Payload, &e)

		return e, wrapEventErr(err)
	case eventKindInterrupted:
		return control.EventInterrupted{}, nil
	case eventKindHalted:
		return control.EventHalted{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown event kind: %d", errEncoding, env.Kind)
	}
}

func wrapEventErr(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: json: decode event: %w", errEncoding, err)
}

// MarshalJSON and UnmarshalJSON route RespRunUntilEvent's Event field through the event envelope.
func (r RespRunUntilEvent) MarshalJSON() ([]byte, error) {
	payload, err := marshalEvent(r.Event)
	if err != nil {
		return nil, err
	}

	return json.Marshal(struct{ Event json.RawMessage }{Event: payload})
}

func (r *RespRunUntilEvent) UnmarshalJSON(data []byte) error {
	var wire struct{ Event json.RawMessage }
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("%w: json: decode RunUntilEvent response: %w", errEncoding, err)
	}

	event, err := unmarshalEvent(wire.Event)
	if err != nil {
		return err
	}

	r.Event = event

	return nil
}

// MarshalJSON and UnmarshalJSON route RespStep's Event field through the event envelope.
func (r RespStep) MarshalJSON() ([]byte, error) {
	payload, err := marshalEvent(r.Event)
	if err != nil {
		return nil, err
	}

	return json.Marshal(struct {
		Event json.RawMessage
		Fired bool
	}{Event: payload, Fired: r.Fired})
}

func (r *RespStep) UnmarshalJSON(data []byte) error {
	var wire struct {
		Event json.RawMessage
		Fired bool
	}

	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("%w: json: decode Step response: %w", errEncoding, err)
	}

	event, err := unmarshalEvent(wire.Event)
	if err != nil {
		return err
	}

	r.Event, r.Fired = event, wire.Fired

	return nil
}
