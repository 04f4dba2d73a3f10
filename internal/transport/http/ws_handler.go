package http

import (
	"log"
	"net/http"

	"hardword-service/internal/realtime"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// WSHandler upgrades clients onto the per-event push channel. The socket is
// notify-only: clients receive change notifications and re-fetch snapshots
// over the REST surface, so a dropped frame costs freshness, not correctness.
type WSHandler struct {
	broker   *realtime.Broker
	upgrader websocket.Upgrader
}

func NewWSHandler(broker *realtime.Broker) *WSHandler {
	return &WSHandler{
		broker: broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS subscribes the connection to one event's notification stream.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	eventID := r.URL.Query().Get("eventId")
	if eventID == "" {
		http.Error(w, "missing eventId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.broker.Subscribe(eventID)
	defer cancel()

	send := make(chan realtime.Message, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case msg, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// The read loop exists only to notice the peer going away. Anything the
	// client sends is ignored; all writes go through the REST surface.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
