package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"time"

	"hardword-service/internal/domain"
	"hardword-service/internal/game"
	"hardword-service/internal/realtime"
)

// codeAlphabet avoids ambiguous characters (no I, O, 0, 1).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 6

// EventService owns the event lifecycle and the question cursor. It is the
// only component that mutates status, the current-question pointer, and
// question activation.
type EventService struct {
	store     Store
	questions QuestionSource
	pub       Publisher
	now       func() time.Time
	rnd       *rand.Rand
}

func NewEventService(store Store, questions QuestionSource, pub Publisher) *EventService {
	return &EventService{
		store:     store,
		questions: questions,
		pub:       pub,
		now:       time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// EventDetail is the host's full view of one event.
type EventDetail struct {
	Event          domain.Event           `json:"event"`
	Questions      []domain.Question      `json:"questions"`
	Participants   []domain.Participant   `json:"participants"`
	CurrentAnswers []domain.CorrectAnswer `json:"current_answers"`
}

// CreateEvent registers a new draft event with a fresh join code.
func (s *EventService) CreateEvent(ctx context.Context, name string) (domain.Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Event{}, fmt.Errorf("%w: event name is required", domain.ErrValidation)
	}

	code, err := s.freeCode(ctx)
	if err != nil {
		return domain.Event{}, err
	}

	ev := domain.Event{
		ID:                   domain.NewID(),
		Name:                 name,
		Code:                 code,
		Status:               domain.StatusDraft,
		CurrentQuestionIndex: -1,
		CreatedAt:            s.now(),
	}
	if err := s.store.CreateEvent(ctx, &ev); err != nil {
		return domain.Event{}, err
	}
	return ev, nil
}

// freeCode generates a join code, retrying a handful of times on collision.
func (s *EventService) freeCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		code := s.randomCode()
		_, err := s.store.EventByCode(ctx, code)
		if errors.Is(err, domain.ErrEventNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("could not generate a unique event code")
}

func (s *EventService) randomCode() string {
	buf := make([]byte, codeLength)
	for i := range buf {
		buf[i] = codeAlphabet[s.rnd.Intn(len(codeAlphabet))]
	}
	return string(buf)
}

func (s *EventService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.store.ListEvents(ctx)
}

// EventDetail returns the event with its questions and participants. When
// answersFor names a question, the correct submissions for it are included
// in arrival order.
func (s *EventService) EventDetail(ctx context.Context, eventID, answersFor string) (EventDetail, error) {
	ev, err := s.store.EventByID(ctx, eventID)
	if err != nil {
		return EventDetail{}, err
	}
	questions, err := s.store.QuestionsByEvent(ctx, eventID)
	if err != nil {
		return EventDetail{}, err
	}
	participants, err := s.store.ParticipantsByEvent(ctx, eventID)
	if err != nil {
		return EventDetail{}, err
	}
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].Score > participants[j].Score
	})

	detail := EventDetail{
		Event:          ev,
		Questions:      questions,
		Participants:   participants,
		CurrentAnswers: []domain.CorrectAnswer{},
	}

	if answersFor != "" {
		answers, err := s.store.CorrectAnswersByQuestion(ctx, answersFor)
		if err != nil {
			return EventDetail{}, err
		}
		names := make(map[string]string, len(participants))
		for _, p := range participants {
			names[p.ID] = p.Name
		}
		for _, a := range answers {
			name := names[a.ParticipantID]
			if name == "" {
				name = "Unknown"
			}
			detail.CurrentAnswers = append(detail.CurrentAnswers, domain.CorrectAnswer{
				ParticipantName: name,
				Points:          a.PointsAwarded,
				AnsweredAt:      a.AnsweredAt,
			})
		}
	}
	return detail, nil
}

func (s *EventService) RenameEvent(ctx context.Context, eventID, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: event name is required", domain.ErrValidation)
	}
	return s.store.RenameEvent(ctx, eventID, strings.TrimSpace(name))
}

func (s *EventService) DeleteEvent(ctx context.Context, eventID string) error {
	if err := s.store.DeleteEvent(ctx, eventID); err != nil {
		return err
	}
	s.questions.Invalidate(eventID)
	return nil
}

// AddQuestion appends a question to a draft event. The canonical answer is
// stored normalized so scoring compares like with like.
func (s *EventService) AddQuestion(ctx context.Context, eventID, text, answer string) (domain.Question, error) {
	if strings.TrimSpace(text) == "" || game.Normalize(answer) == "" {
		return domain.Question{}, fmt.Errorf("%w: question text and answer are required", domain.ErrValidation)
	}
	ev, err := s.store.EventByID(ctx, eventID)
	if err != nil {
		return domain.Question{}, err
	}
	if ev.Status != domain.StatusDraft {
		return domain.Question{}, fmt.Errorf("%w: questions can only be added to draft events", domain.ErrInvalidTransition)
	}

	existing, err := s.store.QuestionsByEvent(ctx, eventID)
	if err != nil {
		return domain.Question{}, err
	}
	nextOrder := 0
	for _, q := range existing {
		if q.Order >= nextOrder {
			nextOrder = q.Order + 1
		}
	}

	q := domain.Question{
		ID:        domain.NewID(),
		EventID:   eventID,
		Text:      strings.TrimSpace(text),
		Answer:    game.Normalize(answer),
		Order:     nextOrder,
		CreatedAt: s.now(),
	}
	if err := s.store.AddQuestion(ctx, &q); err != nil {
		return domain.Question{}, err
	}
	s.questions.Invalidate(eventID)
	s.publish(ctx, eventID, realtime.Message{
		Type:    realtime.TypeQuestionsUpdate,
		Payload: map[string]any{"action": "added"},
	})
	return q, nil
}

// DeleteQuestion removes a question from a draft event.
func (s *EventService) DeleteQuestion(ctx context.Context, eventID, questionID string) error {
	ev, err := s.store.EventByID(ctx, eventID)
	if err != nil {
		return err
	}
	if ev.Status != domain.StatusDraft {
		return fmt.Errorf("%w: questions can only be deleted from draft events", domain.ErrInvalidTransition)
	}
	if err := s.store.DeleteQuestion(ctx, eventID, questionID); err != nil {
		return err
	}
	s.questions.Invalidate(eventID)
	s.publish(ctx, eventID, realtime.Message{
		Type:    realtime.TypeQuestionsUpdate,
		Payload: map[string]any{"action": "deleted"},
	})
	return nil
}

// Control executes one host action against the state machine. The computed
// transition is applied atomically conditioned on the current status, so a
// stale command fails with ErrInvalidTransition and writes nothing.
func (s *EventService) Control(ctx context.Context, eventID string, action domain.Action) (domain.Event, error) {
	ev, err := s.store.EventByID(ctx, eventID)
	if err != nil {
		return domain.Event{}, err
	}
	questions, err := s.store.QuestionsByEvent(ctx, eventID)
	if err != nil {
		return domain.Event{}, err
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].Order < questions[j].Order })

	t := domain.Transition{EventID: eventID, From: ev.Status, StartedAt: s.now()}
	var payload map[string]any

	switch action {
	case domain.ActionStart:
		if ev.Status != domain.StatusDraft {
			return domain.Event{}, fmt.Errorf("%w: event already started", domain.ErrInvalidTransition)
		}
		if len(questions) == 0 {
			return domain.Event{}, fmt.Errorf("%w: event has no questions", domain.ErrInvalidTransition)
		}
		t.To = domain.StatusActive
		t.CurrentQuestionIndex = -1
		payload = map[string]any{"status": string(domain.StatusActive)}

	case domain.ActionNextQuestion:
		if ev.Status != domain.StatusActive {
			return domain.Event{}, fmt.Errorf("%w: event is not active", domain.ErrInvalidTransition)
		}
		nextIndex := ev.CurrentQuestionIndex + 1
		if nextIndex >= len(questions) {
			// Exhausted the list: auto-end.
			t.To = domain.StatusCompleted
			t.CurrentQuestionIndex = len(questions)
			t.DeactivateAll = true
			payload = map[string]any{"status": string(domain.StatusCompleted)}
		} else {
			next := questions[nextIndex]
			t.To = domain.StatusActive
			t.CurrentQuestionID = next.ID
			t.CurrentQuestionIndex = nextIndex
			t.ActivateQuestionID = next.ID
			t.DeactivateQuestionID = ev.CurrentQuestionID
			payload = map[string]any{"action": "next_question", "questionIndex": nextIndex}
		}

	case domain.ActionEnd:
		if ev.Status != domain.StatusActive {
			return domain.Event{}, fmt.Errorf("%w: event is not active", domain.ErrInvalidTransition)
		}
		t.To = domain.StatusCompleted
		t.CurrentQuestionIndex = ev.CurrentQuestionIndex
		t.DeactivateAll = true
		payload = map[string]any{"status": string(domain.StatusCompleted)}

	case domain.ActionReactivate:
		if ev.Status != domain.StatusCompleted {
			return domain.Event{}, fmt.Errorf("%w: only completed events can be reactivated", domain.ErrInvalidTransition)
		}
		t.To = domain.StatusDraft
		t.CurrentQuestionIndex = -1
		t.DeactivateAll = true
		payload = map[string]any{"status": string(domain.StatusDraft)}

	default:
		return domain.Event{}, fmt.Errorf("%w: unknown action %q", domain.ErrValidation, action)
	}

	if err := s.store.ApplyTransition(ctx, t); err != nil {
		return domain.Event{}, err
	}
	s.questions.Invalidate(eventID)

	updated, err := s.store.EventByID(ctx, eventID)
	if err != nil {
		return domain.Event{}, err
	}
	s.publish(ctx, eventID, realtime.Message{Type: realtime.TypeEventUpdate, Payload: payload})
	return updated, nil
}

// publish is fire-and-forget: the triggering write is already durable, so a
// failed notification only delays client refresh.
func (s *EventService) publish(ctx context.Context, eventID string, msg realtime.Message) {
	if err := s.pub.Publish(ctx, eventID, msg); err != nil {
		log.Printf("publish %s for event %s failed: %v", msg.Type, eventID, err)
	}
}

