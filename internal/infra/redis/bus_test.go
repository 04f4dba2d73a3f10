package redis

import (
	"context"
	"testing"
	"time"

	"hardword-service/internal/realtime"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestBusRelaysIntoLocalBroker(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	broker := realtime.NewBroker()
	bus := NewBus(client, broker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = bus.Run(ctx) }()

	ch, unsub := broker.Subscribe("ev-1")
	defer unsub()

	// The subscribe loop needs a moment to establish before publishing.
	deadline := time.After(5 * time.Second)
	msg := realtime.Message{Type: realtime.TypeLeaderboardUpdate, Payload: map[string]any{"reason": "test"}}
	for {
		if err := bus.Publish(ctx, "ev-1", msg); err != nil {
			t.Fatalf("publish: %v", err)
		}
		select {
		case got := <-ch:
			if got.Type != realtime.TypeLeaderboardUpdate {
				t.Fatalf("expected leaderboard-update, got %s", got.Type)
			}
			return
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatalf("bus never relayed the message")
		}
	}
}
