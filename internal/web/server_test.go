package web

import (
	"encoding/json"
	"testing"
	"time"

	"tokenledger.mini/tlm/internal/ledger"
	"tokenledger.mini/tlm/internal/logger"
)

func TestBrokerBroadcast(t *testing.T) {
	b := newBroker()
	fast := make(chan []byte, 1)
	b.register(fast)

	b.broadcast([]byte("hello"))

	select {
	case msg := <-fast:
		if string(msg) != "hello" {
			t.Errorf("Expected hello, got %s", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("broadcast not delivered")
	}

	// a blocked client is skipped, not waited on
	blocked := make(chan []byte)
	b.register(blocked)
	done := make(chan struct{})
	go func() {
		b.broadcast([]byte("again"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on slow client")
	}

	b.unregister(fast)
	b.unregister(blocked)
	// double unregister must not panic on a closed channel
	b.unregister(fast)
}

func TestServerOnEventBroadcastsJSON(t *testing.T) {
	s := NewServer(nil, nil, logger.New(10), 0)

	client := make(chan []byte, 1)
	s.broker.register(client)

	ev := ledger.Event{
		ID:     "ev-1",
		Type:   ledger.EventTransfer,
		From:   "a11ce",
		To:     "b0b",
		Amount: "200",
	}
	s.OnEvent(ev)

	select {
	case data := <-client:
		var got ledger.Event
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Failed to decode broadcast: %v", err)
		}
		if got.ID != "ev-1" || got.Amount != "200" {
			t.Errorf("Unexpected event: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("event not broadcast")
	}
}
