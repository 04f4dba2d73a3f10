package memory

import (
	"context"
	"testing"
	"time"

	"hardword-service/internal/domain"
)

func TestQuestionCacheCaches(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedEvent(t, store, "ev-1")

	loader := &countingLoader{QuestionLoader: store}
	cache := NewQuestionCache(loader, time.Minute)

	qs, err := cache.QuestionsByEvent(ctx, "ev-1")
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(qs) != 2 || loader.calls != 1 {
		t.Fatalf("expected 2 questions from one load, got %d questions, %d calls", len(qs), loader.calls)
	}

	if _, err := cache.QuestionsByEvent(ctx, "ev-1"); err != nil {
		t.Fatalf("questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedEvent(t, store, "ev-1")

	loader := &countingLoader{QuestionLoader: store}
	cache := NewQuestionCache(loader, time.Minute)

	if _, err := cache.QuestionsByEvent(ctx, "ev-1"); err != nil {
		t.Fatalf("questions: %v", err)
	}
	cache.Invalidate("ev-1")
	if _, err := cache.QuestionsByEvent(ctx, "ev-1"); err != nil {
		t.Fatalf("questions after invalidate: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls)
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) QuestionsByEvent(ctx context.Context, eventID string) ([]domain.Question, error) {
	l.calls++
	return l.QuestionLoader.QuestionsByEvent(ctx, eventID)
}

func seedEvent(t *testing.T, store *Store, id string) {
	t.Helper()
	ctx := context.Background()
	err := store.CreateEvent(ctx, &domain.Event{
		ID:                   id,
		Name:                 "Trivia Night",
		Code:                 "ABC234",
		Status:               domain.StatusDraft,
		CurrentQuestionIndex: -1,
		CreatedAt:            time.Now(),
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	for i, answer := range []string{"PARIS", "NEW YORK"} {
		err := store.AddQuestion(ctx, &domain.Question{
			ID:      domain.NewID(),
			EventID: id,
			Text:    "Name the city",
			Answer:  answer,
			Order:   i,
		})
		if err != nil {
			t.Fatalf("add question: %v", err)
		}
	}
}
