package api

import (
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	sid := "s1"
	ch := b.Subscribe(sid)

	evt := SolveEvent{Type: "solve.running", Data: map[string]any{"solveId": sid}}
	b.Publish(sid, evt)

	select {
	case got := <-ch:
		if got.Type != evt.Type {
			t.Fatalf("got type %s, want %s", got.Type, evt.Type)
		}
		if got.Data["solveId"].(string) != sid {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe(sid, ch)
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("channel should be closed after unsubscribe")
		}
	case <-time.After(50 * time.Millisecond):
		// acceptable if already drained and closed
	}
}

func TestBrokerIsolatesSolveIDs(t *testing.T) {
	b := NewBroker()
	a := b.Subscribe("solve-a")
	defer b.Unsubscribe("solve-a", a)

	b.Publish("solve-b", SolveEvent{Type: "solve.succeeded"})
	select {
	case evt := <-a:
		t.Fatalf("subscriber for solve-a received %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}
