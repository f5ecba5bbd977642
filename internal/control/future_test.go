package control

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSharedStateBatchesConcurrentFutures(t *testing.T) {
	shared := NewSharedState()

	if !shared.IsClean() {
		t.Fatal("new shared state should be clean")
	}

	f1 := shared.NewFuture()
	f2 := shared.NewFuture()

	if shared.IsClean() {
		t.Fatal("shared state should not be clean with futures outstanding")
	}

	shared.Resolve(EventHalted{})

	ev1, ok := f1.Poll()
	if !ok || ev1 != (EventHalted{}) {
		t.Fatalf("f1.Poll() = %v, %v; want EventHalted{}, true", ev1, ok)
	}

	ev2, ok := f2.Poll()
	if !ok || ev2 != (EventHalted{}) {
		t.Fatalf("f2.Poll() = %v, %v; want EventHalted{}, true", ev2, ok)
	}

	if !shared.IsClean() {
		t.Fatal("shared state should return to clean once every future is polled")
	}
}

func TestSharedStateNewFuturePanicsOnSealedBatch(t *testing.T) {
	shared := NewSharedState()

	shared.NewFuture()
	shared.Resolve(EventHalted{})

	defer func() {
		if recover() == nil {
			t.Fatal("NewFuture on a sealed, unpolled batch should panic")
		}
	}()

	shared.NewFuture()
}

func TestSharedStateResolvePanicsWhenDormant(t *testing.T) {
	shared := NewSharedState()

	defer func() {
		if recover() == nil {
			t.Fatal("Resolve with no outstanding futures should panic")
		}
	}()

	shared.Resolve(EventHalted{})
}

func TestFutureWaitBlocksUntilResolved(t *testing.T) {
	shared := NewSharedState()
	future := shared.NewFuture()

	done := make(chan Event, 1)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		event, err := future.Wait(ctx)
		if err != nil {
			t.Error(err)
			return
		}

		done <- event
	}()

	time.Sleep(10 * time.Millisecond)
	shared.Resolve(EventBreakpoint{Addr: 0x3000})

	select {
	case event := <-done:
		bp, ok := event.(EventBreakpoint)
		if !ok || bp.Addr != 0x3000 {
			t.Fatalf("Wait resolved to %v; want EventBreakpoint{0x3000}", event)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Resolve")
	}
}

func TestFutureWaitRespectsContextCancellation(t *testing.T) {
	shared := NewSharedState()
	future := shared.NewFuture()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := future.Wait(ctx); err == nil {
		t.Fatal("Wait should return an error once ctx is done")
	}

	shared.Reset()

	if !shared.IsClean() {
		t.Fatal("Reset should return shared state to clean even with a future outstanding")
	}
}

func TestEventErrorGobRoundTrip(t *testing.T) {
	original := EventError{Err: errors.New("boom")}

	data, err := original.GobEncode()
	if err != nil {
		t.Fatalf("GobEncode: %v", err)
	}

	var decoded EventError
	if err := decoded.GobDecode(data); err != nil {
		t.Fatalf("GobDecode: %v", err)
	}

	if decoded.Err == nil || decoded.Err.Error() != "boom" {
		t.Fatalf("decoded.Err = %v; want \"boom\"", decoded.Err)
	}
}

func TestEventErrorJSONRoundTrip(t *testing.T) {
	original := EventError{Err: errors.New("boom")}

	data, err := original.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	var decoded EventError
	if err := decoded.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}

	if decoded.Err == nil || decoded.Err.Error() != "boom" {
		t.Fatalf("decoded.Err = %v; want \"boom\"", decoded.Err)
	}

	nilOriginal := EventError{}

	data, err = nilOriginal.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON (nil): %v", err)
	}

	var decodedNil EventError
	if err := decodedNil.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON (nil): %v", err)
	}

	if decodedNil.Err != nil {
		t.Fatalf("decodedNil.Err = %v; want nil", decodedNil.Err)
	}
}
