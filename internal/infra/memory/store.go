// Package memory provides an in-process Store used for tests and for
// running the service without external infrastructure.
package memory

import (
	"context"
	"sort"
	"sync"

	"hardword-service/internal/app"
	"hardword-service/internal/domain"
)

type pairKey struct {
	questionID    string
	participantID string
}

// Store keeps all game state behind a single mutex. A transaction is simply
// the whole-store critical section, which gives the same count-then-write
// atomicity the Postgres store gets from a database transaction.
type Store struct {
	mu sync.RWMutex

	events       map[string]*domain.Event
	questions    map[string]*domain.Question
	participants map[string]*domain.Participant
	answers      map[pairKey]*domain.Answer
}

func NewStore() *Store {
	return &Store{
		events:       make(map[string]*domain.Event),
		questions:    make(map[string]*domain.Question),
		participants: make(map[string]*domain.Participant),
		answers:      make(map[pairKey]*domain.Answer),
	}
}

// txStore is the unlocked view handed to InTx callbacks.
type txStore struct {
	s *Store
}

func (s *Store) InTx(ctx context.Context, fn func(tx app.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&txStore{s: s})
}

// Nested transactions reuse the already-held lock.
func (t *txStore) InTx(ctx context.Context, fn func(tx app.Store) error) error {
	return fn(t)
}

// --- events ---

func (s *Store) CreateEvent(ctx context.Context, ev *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createEventLocked(ev)
}

func (t *txStore) CreateEvent(ctx context.Context, ev *domain.Event) error {
	return t.s.createEventLocked(ev)
}

func (s *Store) createEventLocked(ev *domain.Event) error {
	for _, other := range s.events {
		if other.Code == ev.Code {
			return domain.ErrConflict
		}
	}
	cp := *ev
	s.events[ev.ID] = &cp
	return nil
}

func (s *Store) EventByID(ctx context.Context, id string) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventByIDLocked(id)
}

func (t *txStore) EventByID(ctx context.Context, id string) (domain.Event, error) {
	return t.s.eventByIDLocked(id)
}

func (s *Store) eventByIDLocked(id string) (domain.Event, error) {
	ev, ok := s.events[id]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return *ev, nil
}

func (s *Store) EventByCode(ctx context.Context, code string) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventByCodeLocked(code)
}

func (t *txStore) EventByCode(ctx context.Context, code string) (domain.Event, error) {
	return t.s.eventByCodeLocked(code)
}

func (s *Store) eventByCodeLocked(code string) (domain.Event, error) {
	for _, ev := range s.events {
		if ev.Code == code {
			return *ev, nil
		}
	}
	return domain.Event{}, domain.ErrEventNotFound
}

func (s *Store) ListEvents(ctx context.Context) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listEventsLocked()
}

func (t *txStore) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return t.s.listEventsLocked()
}

func (s *Store) listEventsLocked() ([]domain.Event, error) {
	out := make([]domain.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, *ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) RenameEvent(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renameEventLocked(id, name)
}

func (t *txStore) RenameEvent(ctx context.Context, id, name string) error {
	return t.s.renameEventLocked(id, name)
}

func (s *Store) renameEventLocked(id, name string) error {
	ev, ok := s.events[id]
	if !ok {
		return domain.ErrEventNotFound
	}
	ev.Name = name
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteEventLocked(id)
}

func (t *txStore) DeleteEvent(ctx context.Context, id string) error {
	return t.s.deleteEventLocked(id)
}

func (s *Store) deleteEventLocked(id string) error {
	if _, ok := s.events[id]; !ok {
		return domain.ErrEventNotFound
	}
	delete(s.events, id)
	for qid, q := range s.questions {
		if q.EventID == id {
			for key := range s.answers {
				if key.questionID == qid {
					delete(s.answers, key)
				}
			}
			delete(s.questions, qid)
		}
	}
	for pid, p := range s.participants {
		if p.EventID == id {
			delete(s.participants, pid)
		}
	}
	return nil
}

func (s *Store) ApplyTransition(ctx context.Context, t domain.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyTransitionLocked(t)
}

func (t *txStore) ApplyTransition(ctx context.Context, tr domain.Transition) error {
	return t.s.applyTransitionLocked(tr)
}

func (s *Store) applyTransitionLocked(t domain.Transition) error {
	ev, ok := s.events[t.EventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	if ev.Status != t.From {
		return domain.ErrInvalidTransition
	}

	ev.Status = t.To
	ev.CurrentQuestionID = t.CurrentQuestionID
	ev.CurrentQuestionIndex = t.CurrentQuestionIndex

	if t.DeactivateAll {
		for _, q := range s.questions {
			if q.EventID == t.EventID {
				q.IsActive = false
			}
		}
	} else if t.DeactivateQuestionID != "" {
		if q, ok := s.questions[t.DeactivateQuestionID]; ok {
			q.IsActive = false
		}
	}
	if t.ActivateQuestionID != "" {
		q, ok := s.questions[t.ActivateQuestionID]
		if !ok {
			return domain.ErrQuestionNotFound
		}
		q.IsActive = true
		started := t.StartedAt
		q.StartedAt = &started
	}
	return nil
}

// --- questions ---

func (s *Store) AddQuestion(ctx context.Context, q *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addQuestionLocked(q)
}

func (t *txStore) AddQuestion(ctx context.Context, q *domain.Question) error {
	return t.s.addQuestionLocked(q)
}

func (s *Store) addQuestionLocked(q *domain.Question) error {
	if _, ok := s.events[q.EventID]; !ok {
		return domain.ErrEventNotFound
	}
	for _, other := range s.questions {
		if other.EventID == q.EventID && other.Order == q.Order {
			return domain.ErrConflict
		}
	}
	cp := *q
	s.questions[q.ID] = &cp
	return nil
}

func (s *Store) DeleteQuestion(ctx context.Context, eventID, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteQuestionLocked(eventID, questionID)
}

func (t *txStore) DeleteQuestion(ctx context.Context, eventID, questionID string) error {
	return t.s.deleteQuestionLocked(eventID, questionID)
}

func (s *Store) deleteQuestionLocked(eventID, questionID string) error {
	q, ok := s.questions[questionID]
	if !ok || q.EventID != eventID {
		return domain.ErrQuestionNotFound
	}
	delete(s.questions, questionID)
	for key := range s.answers {
		if key.questionID == questionID {
			delete(s.answers, key)
		}
	}
	return nil
}

func (s *Store) QuestionByID(ctx context.Context, id string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.questionByIDLocked(id)
}

func (t *txStore) QuestionByID(ctx context.Context, id string) (domain.Question, error) {
	return t.s.questionByIDLocked(id)
}

func (s *Store) questionByIDLocked(id string) (domain.Question, error) {
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return *q, nil
}

// QuestionForUpdate is a plain read here: the store mutex already serializes
// whole transactions, which is the locking the Postgres store gets per row.
func (s *Store) QuestionForUpdate(ctx context.Context, id string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.questionByIDLocked(id)
}

func (t *txStore) QuestionForUpdate(ctx context.Context, id string) (domain.Question, error) {
	return t.s.questionByIDLocked(id)
}

func (s *Store) QuestionsByEvent(ctx context.Context, eventID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.questionsByEventLocked(eventID)
}

func (t *txStore) QuestionsByEvent(ctx context.Context, eventID string) ([]domain.Question, error) {
	return t.s.questionsByEventLocked(eventID)
}

func (s *Store) questionsByEventLocked(eventID string) ([]domain.Question, error) {
	out := make([]domain.Question, 0)
	for _, q := range s.questions {
		if q.EventID == eventID {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

// --- participants ---

func (s *Store) CreateParticipant(ctx context.Context, p *domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createParticipantLocked(p)
}

func (t *txStore) CreateParticipant(ctx context.Context, p *domain.Participant) error {
	return t.s.createParticipantLocked(p)
}

func (s *Store) createParticipantLocked(p *domain.Participant) error {
	if _, ok := s.events[p.EventID]; !ok {
		return domain.ErrEventNotFound
	}
	for _, other := range s.participants {
		if other.EventID == p.EventID && other.Name == p.Name {
			return domain.ErrConflict
		}
	}
	cp := *p
	s.participants[p.ID] = &cp
	return nil
}

func (s *Store) ParticipantByID(ctx context.Context, id string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.participantByIDLocked(id)
}

func (t *txStore) ParticipantByID(ctx context.Context, id string) (domain.Participant, error) {
	return t.s.participantByIDLocked(id)
}

func (s *Store) participantByIDLocked(id string) (domain.Participant, error) {
	p, ok := s.participants[id]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return *p, nil
}

func (s *Store) ParticipantByName(ctx context.Context, eventID, name string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.participantByNameLocked(eventID, name)
}

func (t *txStore) ParticipantByName(ctx context.Context, eventID, name string) (domain.Participant, error) {
	return t.s.participantByNameLocked(eventID, name)
}

func (s *Store) participantByNameLocked(eventID, name string) (domain.Participant, error) {
	for _, p := range s.participants {
		if p.EventID == eventID && p.Name == name {
			return *p, nil
		}
	}
	return domain.Participant{}, domain.ErrParticipantNotFound
}

func (s *Store) ParticipantsByEvent(ctx context.Context, eventID string) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.participantsByEventLocked(eventID)
}

func (t *txStore) ParticipantsByEvent(ctx context.Context, eventID string) ([]domain.Participant, error) {
	return t.s.participantsByEventLocked(eventID)
}

func (s *Store) participantsByEventLocked(eventID string) ([]domain.Participant, error) {
	out := make([]domain.Participant, 0)
	for _, p := range s.participants {
		if p.EventID == eventID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (s *Store) AddScore(ctx context.Context, participantID string, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addScoreLocked(participantID, points)
}

func (t *txStore) AddScore(ctx context.Context, participantID string, points int) error {
	return t.s.addScoreLocked(participantID, points)
}

func (s *Store) addScoreLocked(participantID string, points int) error {
	p, ok := s.participants[participantID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	p.Score += points
	return nil
}

// --- answers ---

func (s *Store) AnswerByPair(ctx context.Context, questionID, participantID string) (domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.answerByPairLocked(questionID, participantID)
}

func (t *txStore) AnswerByPair(ctx context.Context, questionID, participantID string) (domain.Answer, error) {
	return t.s.answerByPairLocked(questionID, participantID)
}

func (s *Store) answerByPairLocked(questionID, participantID string) (domain.Answer, error) {
	a, ok := s.answers[pairKey{questionID, participantID}]
	if !ok {
		return domain.Answer{}, domain.ErrAnswerNotFound
	}
	return *a, nil
}

func (s *Store) CountCorrectAnswers(ctx context.Context, questionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countCorrectAnswersLocked(questionID)
}

func (t *txStore) CountCorrectAnswers(ctx context.Context, questionID string) (int, error) {
	return t.s.countCorrectAnswersLocked(questionID)
}

func (s *Store) countCorrectAnswersLocked(questionID string) (int, error) {
	count := 0
	for key, a := range s.answers {
		if key.questionID == questionID && a.IsCorrect {
			count++
		}
	}
	return count, nil
}

func (s *Store) CorrectAnswersByQuestion(ctx context.Context, questionID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.correctAnswersByQuestionLocked(questionID)
}

func (t *txStore) CorrectAnswersByQuestion(ctx context.Context, questionID string) ([]domain.Answer, error) {
	return t.s.correctAnswersByQuestionLocked(questionID)
}

func (s *Store) correctAnswersByQuestionLocked(questionID string) ([]domain.Answer, error) {
	out := make([]domain.Answer, 0)
	for key, a := range s.answers {
		if key.questionID == questionID && a.IsCorrect {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AnsweredAt.Before(out[j].AnsweredAt) })
	return out, nil
}

func (s *Store) UpsertAnswer(ctx context.Context, a *domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertAnswerLocked(a)
}

func (t *txStore) UpsertAnswer(ctx context.Context, a *domain.Answer) error {
	return t.s.upsertAnswerLocked(a)
}

func (s *Store) upsertAnswerLocked(a *domain.Answer) error {
	cp := *a
	s.answers[pairKey{a.QuestionID, a.ParticipantID}] = &cp
	return nil
}

func (s *Store) CorrectAnswerTotals(ctx context.Context, eventID string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.correctAnswerTotalsLocked(eventID)
}

func (t *txStore) CorrectAnswerTotals(ctx context.Context, eventID string) (map[string]int64, error) {
	return t.s.correctAnswerTotalsLocked(eventID)
}

func (s *Store) correctAnswerTotalsLocked(eventID string) (map[string]int64, error) {
	totals := make(map[string]int64)
	for key, a := range s.answers {
		if !a.IsCorrect {
			continue
		}
		q, ok := s.questions[key.questionID]
		if !ok || q.EventID != eventID {
			continue
		}
		totals[a.ParticipantID] += a.TimeTakenMS
	}
	return totals, nil
}

var _ app.Store = (*Store)(nil)
var _ app.Store = (*txStore)(nil)
