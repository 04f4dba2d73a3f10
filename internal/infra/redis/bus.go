package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"hardword-service/internal/realtime"
	"github.com/redis/go-redis/v9"
)

const busChannelPrefix = "hardword:event:"

// Bus fans notifications out across service instances: publishes go to a
// Redis channel per event, and Run feeds everything received back into the
// local in-process broker, where websocket subscribers pick it up.
type Bus struct {
	client *redis.Client
	local  *realtime.Broker
}

func NewBus(client *redis.Client, local *realtime.Broker) *Bus {
	return &Bus{client: client, local: local}
}

type envelope struct {
	realtime.Message
	EventID string `json:"event_id"`
}

func (b *Bus) Publish(ctx context.Context, eventID string, msg realtime.Message) error {
	data, err := json.Marshal(envelope{Message: msg, EventID: eventID})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return b.client.Publish(ctx, busChannelPrefix+eventID, data).Err()
}

// Run subscribes to every event channel and relays messages into the local
// broker until ctx is canceled. A malformed payload is logged and skipped.
func (b *Bus) Run(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, busChannelPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("bus: dropping malformed message on %s: %v", msg.Channel, err)
				continue
			}
			eventID := env.EventID
			if eventID == "" {
				eventID = strings.TrimPrefix(msg.Channel, busChannelPrefix)
			}
			_ = b.local.Publish(ctx, eventID, env.Message)
		}
	}
}
