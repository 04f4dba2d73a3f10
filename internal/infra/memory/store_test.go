package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"hardword-service/internal/app"
	"hardword-service/internal/domain"
)

func TestStoreParticipantUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedEvent(t, store, "ev-1")

	p := domain.Participant{ID: domain.NewID(), EventID: "ev-1", Name: "Alice", JoinedAt: time.Now()}
	if err := store.CreateParticipant(ctx, &p); err != nil {
		t.Fatalf("create participant: %v", err)
	}

	dup := domain.Participant{ID: domain.NewID(), EventID: "ev-1", Name: "Alice", JoinedAt: time.Now()}
	if err := store.CreateParticipant(ctx, &dup); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for duplicate name, got %v", err)
	}

	found, err := store.ParticipantByName(ctx, "ev-1", "Alice")
	if err != nil || found.ID != p.ID {
		t.Fatalf("expected original participant, got %+v err=%v", found, err)
	}
}

func TestStoreApplyTransitionChecksPrecondition(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedEvent(t, store, "ev-1")

	err := store.ApplyTransition(ctx, domain.Transition{
		EventID:              "ev-1",
		From:                 domain.StatusActive, // stored status is draft
		To:                   domain.StatusCompleted,
		CurrentQuestionIndex: 0,
	})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	ev, err := store.EventByID(ctx, "ev-1")
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if ev.Status != domain.StatusDraft || ev.CurrentQuestionIndex != -1 {
		t.Fatalf("failed transition must not write: %+v", ev)
	}
}

func TestStoreApplyTransitionActivatesQuestion(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedEvent(t, store, "ev-1")

	questions, _ := store.QuestionsByEvent(ctx, "ev-1")
	started := time.Now()

	err := store.ApplyTransition(ctx, domain.Transition{
		EventID:              "ev-1",
		From:                 domain.StatusDraft,
		To:                   domain.StatusActive,
		CurrentQuestionID:    questions[0].ID,
		CurrentQuestionIndex: 0,
		ActivateQuestionID:   questions[0].ID,
		StartedAt:            started,
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}

	q, _ := store.QuestionByID(ctx, questions[0].ID)
	if !q.IsActive || q.StartedAt == nil || !q.StartedAt.Equal(started) {
		t.Fatalf("expected active question stamped at %v, got %+v", started, q)
	}
}

func TestStoreInTxComposesCountAndWrite(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedEvent(t, store, "ev-1")
	questions, _ := store.QuestionsByEvent(ctx, "ev-1")
	qid := questions[0].ID

	p := domain.Participant{ID: domain.NewID(), EventID: "ev-1", Name: "Alice", JoinedAt: time.Now()}
	if err := store.CreateParticipant(ctx, &p); err != nil {
		t.Fatalf("create participant: %v", err)
	}

	err := store.InTx(ctx, func(tx app.Store) error {
		prior, err := tx.CountCorrectAnswers(ctx, qid)
		if err != nil {
			return err
		}
		if prior != 0 {
			t.Fatalf("expected zero prior corrects, got %d", prior)
		}
		return tx.UpsertAnswer(ctx, &domain.Answer{
			ID:            domain.NewID(),
			QuestionID:    qid,
			ParticipantID: p.ID,
			IsCorrect:     true,
			PointsAwarded: 10,
			Attempts:      1,
			AnsweredAt:    time.Now(),
		})
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	count, _ := store.CountCorrectAnswers(ctx, qid)
	if count != 1 {
		t.Fatalf("expected one correct answer, got %d", count)
	}
}

func TestStoreDeleteEventCascades(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedEvent(t, store, "ev-1")
	questions, _ := store.QuestionsByEvent(ctx, "ev-1")

	if err := store.DeleteEvent(ctx, "ev-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.QuestionByID(ctx, questions[0].ID); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected cascaded question delete, got %v", err)
	}
}
