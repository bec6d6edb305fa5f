package eventbus

import (
	"testing"

	"github.com/kilianp07/districtsched/core/events"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Publish(events.IterationEvent{RunID: "r1", Index: 3})
	v := <-ch
	ev, ok := v.(events.IterationEvent)
	if !ok {
		t.Fatalf("expected IterationEvent got %T", v)
	}
	if ev.RunID != "r1" || ev.Index != 3 {
		t.Fatalf("unexpected event %+v", ev)
	}
	bus.Unsubscribe(ch)
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	for i := 0; i < subBuffer+5; i++ {
		bus.Publish(events.IterationEvent{Index: i})
	}
	// the buffer holds the first events, the overflow is gone
	n := 0
	for {
		select {
		case <-ch:
			n++
			continue
		default:
		}
		break
	}
	if n != subBuffer {
		t.Fatalf("expected %d buffered events, got %d", subBuffer, n)
	}
}

func TestBusClose(t *testing.T) {
	bus := New()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	if _, ok := <-ch1; ok {
		t.Fatalf("expected ch1 closed")
	}
	if _, ok := <-ch2; ok {
		t.Fatalf("expected ch2 closed")
	}
}

func TestBusUnsubscribeAfterClose(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Close()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic on Unsubscribe after Close: %v", r)
		}
	}()
	bus.Unsubscribe(ch)
}
