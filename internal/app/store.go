package app

import (
	"context"

	"hardword-service/internal/domain"
	"hardword-service/internal/realtime"
)

// Store abstracts the durable store (in-memory, Postgres, etc). Lookups
// return domain sentinel errors for missing rows; writes that lose a
// uniqueness race return domain.ErrConflict.
type Store interface {
	// InTx runs fn against a view of the store inside one atomic unit, so a
	// row count and a subsequent write compose without racing other writers.
	InTx(ctx context.Context, fn func(tx Store) error) error

	CreateEvent(ctx context.Context, ev *domain.Event) error
	EventByID(ctx context.Context, id string) (domain.Event, error)
	EventByCode(ctx context.Context, code string) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
	RenameEvent(ctx context.Context, id, name string) error
	DeleteEvent(ctx context.Context, id string) error

	// ApplyTransition persists a state-machine step atomically, failing with
	// domain.ErrInvalidTransition when the stored status no longer matches
	// the transition's precondition. Nothing is written on failure.
	ApplyTransition(ctx context.Context, t domain.Transition) error

	AddQuestion(ctx context.Context, q *domain.Question) error
	DeleteQuestion(ctx context.Context, eventID, questionID string) error
	QuestionByID(ctx context.Context, id string) (domain.Question, error)
	// QuestionForUpdate reads a question and holds it against concurrent
	// submissions for the rest of the transaction, so a rank count and the
	// write it feeds cannot interleave with another submitter's.
	QuestionForUpdate(ctx context.Context, id string) (domain.Question, error)
	QuestionsByEvent(ctx context.Context, eventID string) ([]domain.Question, error)

	CreateParticipant(ctx context.Context, p *domain.Participant) error
	ParticipantByID(ctx context.Context, id string) (domain.Participant, error)
	ParticipantByName(ctx context.Context, eventID, name string) (domain.Participant, error)
	ParticipantsByEvent(ctx context.Context, eventID string) ([]domain.Participant, error)
	AddScore(ctx context.Context, participantID string, points int) error

	AnswerByPair(ctx context.Context, questionID, participantID string) (domain.Answer, error)
	CountCorrectAnswers(ctx context.Context, questionID string) (int, error)
	CorrectAnswersByQuestion(ctx context.Context, questionID string) ([]domain.Answer, error)
	UpsertAnswer(ctx context.Context, a *domain.Answer) error
	// CorrectAnswerTotals sums time_taken_ms of correct answers per
	// participant across one event.
	CorrectAnswerTotals(ctx context.Context, eventID string) (map[string]int64, error)
}

// QuestionSource serves the ordered question list of an event on the hot
// read path, typically backed by a TTL cache over the Store.
type QuestionSource interface {
	QuestionsByEvent(ctx context.Context, eventID string) ([]domain.Question, error)
	Invalidate(eventID string)
}

// Publisher fans a typed notification out to all subscribers of an event.
// Publishing happens only after the triggering write committed, so a failure
// delays client refresh but never corrupts state.
type Publisher interface {
	Publish(ctx context.Context, eventID string, msg realtime.Message) error
}
