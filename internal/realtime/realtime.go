// Package realtime fans state-change notifications out to subscribers of one
// event. Delivery is best-effort: every payload is a nudge to re-fetch an
// authoritative snapshot, never the source of truth itself.
package realtime

import (
	"context"
	"sync"
)

// Type identifies what changed. Payloads never carry the canonical answer.
type Type string

const (
	TypeEventUpdate       Type = "event-update"
	TypeLeaderboardUpdate Type = "leaderboard-update"
	TypeParticipantJoined Type = "participant-joined"
	TypeAnswerSubmitted   Type = "answer-submitted"
	TypeWrongAnswer       Type = "wrong-answer"
	TypeQuestionsUpdate   Type = "questions-update"
)

// Message is the typed notification published after a state-changing write.
type Message struct {
	Type    Type           `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Broker is an in-process fan-out addressed by event ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan Message]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan Message]struct{})}
}

// Subscribe registers a listener for one event. The caller must invoke the
// returned cancel function to avoid leaks.
func (b *Broker) Subscribe(eventID string) (<-chan Message, func()) {
	ch := make(chan Message, 8)

	b.mu.Lock()
	if b.subs[eventID] == nil {
		b.subs[eventID] = make(map[chan Message]struct{})
	}
	b.subs[eventID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[eventID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, eventID)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers msg to every current subscriber of the event. A slow
// subscriber has its oldest pending message dropped rather than blocking the
// broadcast; the next snapshot fetch absorbs the gap.
func (b *Broker) Publish(_ context.Context, eventID string, msg Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[eventID] {
		select {
		case ch <- msg:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- msg:
			default:
			}
		}
	}
	return nil
}
