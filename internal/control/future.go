package control

// future.go implements the cooperative completion primitive run_until_event depends on: a finite
// shared-state machine (Dormant / WaitingForAnEvent / WaitingForFuturesToResolve / Errored) and the
// Future handle producers hand out to callers.
//
// The state machine and its invariants are a direct port of the batching rules documented
// alongside run_until_event: a batch opens on the first call and seals when an event occurs; no new
// batch may open until every future in the sealed batch has been polled to completion.

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// Event is the result a run_until_event future resolves to.
type Event interface {
	isEvent()
}

// EventBreakpoint fires when Step stops at a set breakpoint.
type EventBreakpoint struct{ Addr uint16 }

// EventMemoryWatch fires when a committed write changes a watched word's value.
type EventMemoryWatch struct{ Addr, Data uint16 }

// EventError fires when the interpreter records a fatal error.
type EventError struct{ Err error }

// GobEncode and GobDecode flatten Err to its message so EventError survives a gob round-trip even
// though error values themselves generally do not (see internal/rpc, which registers this type).
func (e EventError) GobEncode() ([]byte, error) {
	if e.Err == nil {
		return []byte{}, nil
	}

	return []byte(e.Err.Error()), nil
}

func (e *EventError) GobDecode(data []byte) error {
	if len(data) == 0 {
		e.Err = nil
		return nil
	}

	e.Err = errors.New(string(data))

	return nil
}

// MarshalJSON and UnmarshalJSON apply the same message-flattening as GobEncode/GobDecode.
func (e EventError) MarshalJSON() ([]byte, error) {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}

	return []byte(strconv.Quote(msg)), nil
}

func (e *EventError) UnmarshalJSON(data []byte) error {
	msg, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("control: event error: %w", err)
	}

	if msg == "" {
		e.Err = nil
	} else {
		e.Err = errors.New(msg)
	}

	return nil
}

// EventInterrupted fires when Pause interrupts an in-flight run_until_event.
type EventInterrupted struct{}

// EventHalted fires when the interpreter's MCR running bit clears.
type EventHalted struct{}

func (EventBreakpoint) isEvent()  {}
func (EventMemoryWatch) isEvent() {}
func (EventError) isEvent()       {}
func (EventInterrupted) isEvent() {}
func (EventHalted) isEvent()      {}

type sharedStateKind int

const (
	stateDormant sharedStateKind = iota
	stateWaitingForEvent
	stateWaitingForFuturesToResolve
	stateErrored
)

// SharedState coordinates one or more outstanding run_until_event futures ("a batch") with the
// producer that eventually resolves them. Every method is safe for concurrent use; invalid call
// orderings panic, since they represent a programming error in the calling layer, not a runtime
// condition a caller can recover from.
type SharedState struct {
	mu    sync.Mutex
	kind  sharedStateKind
	event Event
	count uint8
	wake  chan struct{}
}

// NewSharedState creates a shared state in its Dormant resting position.
func NewSharedState() *SharedState {
	return &SharedState{kind: stateDormant, wake: make(chan struct{}, 1)}
}

// Future is a caller's handle onto one run_until_event call. Multiple Futures created before the
// next event belong to the same batch and all resolve to the same Event.
type Future struct {
	shared *SharedState
}

// newFuture opens (or joins) a batch. It panics if the current batch is already sealed: callers
// must poll every outstanding future of a sealed batch before starting a new one.
func (s *SharedState) newFuture() *Future {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.kind {
	case stateDormant:
		s.kind = stateWaitingForEvent
		s.count = 1
	case stateWaitingForEvent:
		if s.count == 255 {
			panic("control: shared state: maximum outstanding futures reached")
		}

		s.count++
	case stateWaitingForFuturesToResolve:
		panic("control: shared state: new future requested while batch is sealed")
	case stateErrored:
		panic("control: shared state: poisoned")
	}

	return &Future{shared: s}
}

// resolveAll seals the current batch with event, waking anything blocked in Wait. It panics if
// called while Dormant (nothing registered a future yet) or if the batch is already sealed.
func (s *SharedState) resolveAll(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.kind {
	case stateDormant:
		panic("control: shared state: set_event called with no pending futures")
	case stateWaitingForFuturesToResolve:
		panic("control: shared state: set_event called on an already-sealed batch")
	case stateErrored:
		panic("control: shared state: poisoned")
	}

	s.kind = stateWaitingForFuturesToResolve
	s.event = event

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// getEvent returns the sealed batch's event, decrementing the outstanding count; once the count
// reaches zero the state returns to Dormant.
func (s *SharedState) getEvent() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kind != stateWaitingForFuturesToResolve {
		return nil, false
	}

	event := s.event
	s.count--

	if s.count == 0 {
		s.kind = stateDormant
		s.event = nil
	}

	return event, true
}

// batchSealed reports whether the current batch already has an event (no new futures permitted).
func (s *SharedState) batchSealed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.kind == stateWaitingForFuturesToResolve
}

// IsClean reports whether the shared state has no outstanding futures (ready for a new batch).
func (s *SharedState) IsClean() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.kind == stateDormant
}

// Reset drops every outstanding future and returns the state to Dormant. Used by Control.Reset:
// the device is about to invalidate any in-flight run_until_event.
func (s *SharedState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.kind = stateDormant
	s.event = nil
	s.count = 0
}

// NewFuture opens or joins a batch, returning a handle the caller can Poll or Wait on. Exported for
// rpc.Controller, which hands out futures to its own callers mirroring the remote device's batch.
func (s *SharedState) NewFuture() *Future { return s.newFuture() }

// Resolve seals the current batch with event. Exported for rpc.Controller, which calls this when
// the device's unsolicited run_until_event response arrives.
func (s *SharedState) Resolve(event Event) { s.resolveAll(event) }

// Poll returns the batch's event without blocking, matching the porcelain Future::poll contract.
func (f *Future) Poll() (Event, bool) {
	return f.shared.getEvent()
}

// Wait blocks until the batch this future belongs to resolves, or ctx is done.
func (f *Future) Wait(ctx context.Context) (Event, error) {
	for {
		if event, ok := f.shared.getEvent(); ok {
			return event, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("control: future: %w", ctx.Err())
		case <-f.shared.wake:
		}
	}
}
