package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hardword-service/internal/realtime"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

func routerWith(h *WSHandler) *httprouter.Router {
	router := httprouter.New()
	router.GET("/ws", h.ServeWS)
	return router
}

func TestServeWSDeliversEventNotifications(t *testing.T) {
	broker := realtime.NewBroker()
	handler := NewWSHandler(broker)

	srv := httptest.NewServer(routerWith(handler))
	defer srv.Close()

	url := strings.Replace(srv.URL, "http://", "ws://", 1) + "/ws?eventId=ev-1"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	// The subscription races the dial returning; retry until the broker has
	// the listener registered.
	deadline := time.Now().Add(5 * time.Second)
	conn.SetReadDeadline(deadline)
	go func() {
		for time.Now().Before(deadline) {
			broker.Publish(context.Background(), "ev-1", realtime.Message{
				Type:    realtime.TypeLeaderboardUpdate,
				Payload: map[string]any{"reason": "test"},
			})
			time.Sleep(10 * time.Millisecond)
		}
	}()

	var msg realtime.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != realtime.TypeLeaderboardUpdate {
		t.Fatalf("expected leaderboard-update, got %s", msg.Type)
	}
	if msg.Payload["reason"] != "test" {
		t.Fatalf("payload lost in transit: %v", msg.Payload)
	}
}

func TestServeWSIsolatesEvents(t *testing.T) {
	broker := realtime.NewBroker()
	handler := NewWSHandler(broker)

	srv := httptest.NewServer(routerWith(handler))
	defer srv.Close()

	url := strings.Replace(srv.URL, "http://", "ws://", 1) + "/ws?eventId=ev-a"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	time.Sleep(50 * time.Millisecond)
	broker.Publish(context.Background(), "ev-b", realtime.Message{Type: realtime.TypeEventUpdate})

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var msg realtime.Message
	if err := conn.ReadJSON(&msg); err == nil {
		t.Fatalf("received a notification for another event: %v", msg)
	}
}

func TestServeWSRejectsMissingEventID(t *testing.T) {
	broker := realtime.NewBroker()
	handler := NewWSHandler(broker)

	srv := httptest.NewServer(routerWith(handler))
	defer srv.Close()

	url := strings.Replace(srv.URL, "http://", "ws://", 1) + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("expected handshake failure without eventId")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %v", resp)
	}
	if resp.Body != nil {
		resp.Body.Close()
	}
}
