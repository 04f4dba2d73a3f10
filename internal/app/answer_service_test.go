package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"hardword-service/internal/app"
	"hardword-service/internal/domain"
	"hardword-service/internal/game"
	"hardword-service/internal/realtime"
)

// startWithQuestion drives an event to its first active question and joins
// the named players, returning the question ID and participant IDs by name.
func startWithQuestion(t *testing.T, f *fixture, answer string, players ...string) (string, map[string]string) {
	t.Helper()
	ctx := context.Background()
	ev := f.createEventWithQuestions(t, "Game", answer)
	if _, err := f.events.Control(ctx, ev.ID, domain.ActionStart); err != nil {
		t.Fatalf("start: %v", err)
	}
	active, err := f.events.Control(ctx, ev.ID, domain.ActionNextQuestion)
	if err != nil {
		t.Fatalf("next: %v", err)
	}

	ids := make(map[string]string, len(players))
	for _, name := range players {
		joined, err := f.participants.Join(ctx, ev.Code, name)
		if err != nil {
			t.Fatalf("join %s: %v", name, err)
		}
		ids[name] = joined.ParticipantID
	}
	return active.CurrentQuestionID, ids
}

func TestSubmitAwardsRankBasedPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	questionID, ids := startWithQuestion(t, f, "PARIS", "Alice", "Bob")

	first, err := f.answers.Submit(ctx, questionID, ids["Alice"], "paris", 3000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !first.Correct || first.Points != 10 || first.Rank != 1 {
		t.Fatalf("first correct: %+v", first)
	}
	if first.Message != "🥇 First to answer! +10 points!" {
		t.Fatalf("unexpected message %q", first.Message)
	}

	second, err := f.answers.Submit(ctx, questionID, ids["Bob"], "PARIS", 4500)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if second.Points != 9 || second.Rank != 2 {
		t.Fatalf("second correct: %+v", second)
	}

	alice, _ := f.store.ParticipantByID(ctx, ids["Alice"])
	bob, _ := f.store.ParticipantByID(ctx, ids["Bob"])
	if alice.Score != 10 || bob.Score != 9 {
		t.Fatalf("scores not applied: alice=%d bob=%d", alice.Score, bob.Score)
	}
}

func TestSubmitIsIdempotentOncePairSettled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	questionID, ids := startWithQuestion(t, f, "PARIS", "Alice")

	if _, err := f.answers.Submit(ctx, questionID, ids["Alice"], "paris", 1000); err != nil {
		t.Fatalf("submit: %v", err)
	}
	again, err := f.answers.Submit(ctx, questionID, ids["Alice"], "paris", 1000)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !again.AlreadyAnswered || again.Points != 10 {
		t.Fatalf("resubmit rescored: %+v", again)
	}

	alice, _ := f.store.ParticipantByID(ctx, ids["Alice"])
	if alice.Score != 10 {
		t.Fatalf("score double-counted: %d", alice.Score)
	}
}

func TestSubmitWrongAnswerReturnsHintsAndCountsAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	questionID, ids := startWithQuestion(t, f, "PARIS", "Alice")

	result, err := f.answers.Submit(ctx, questionID, ids["Alice"], "RAPIS", 0)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Correct {
		t.Fatalf("RAPIS accepted")
	}
	want := []game.Hint{game.HintYellow, game.HintGreen, game.HintYellow, game.HintGreen, game.HintGreen}
	for i, h := range result.Hints {
		if h != want[i] {
			t.Fatalf("hint %d: got %s want %s", i, h, want[i])
		}
	}

	if _, err := f.answers.Submit(ctx, questionID, ids["Alice"], "LONDON", 0); err != nil {
		t.Fatalf("second wrong: %v", err)
	}
	entry, err := f.store.AnswerByPair(ctx, questionID, ids["Alice"])
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if entry.Attempts != 2 || entry.IsCorrect {
		t.Fatalf("ledger entry: %+v", entry)
	}

	// A wrong streak does not block the eventual correct answer.
	final, err := f.answers.Submit(ctx, questionID, ids["Alice"], "paris", 9000)
	if err != nil {
		t.Fatalf("final: %v", err)
	}
	if !final.Correct || final.Rank != 1 {
		t.Fatalf("correct after retries: %+v", final)
	}
}

func TestSubmitEnforcesMaxAttempts(t *testing.T) {
	f := newFixture(t)
	f.answers = app.NewAnswerService(f.store, f.pub, 2)
	ctx := context.Background()
	questionID, ids := startWithQuestion(t, f, "PARIS", "Alice")

	for i := 0; i < 2; i++ {
		if _, err := f.answers.Submit(ctx, questionID, ids["Alice"], "WRONG", 0); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if _, err := f.answers.Submit(ctx, questionID, ids["Alice"], "paris", 0); !errors.Is(err, domain.ErrAttemptsExhausted) {
		t.Fatalf("expected attempts exhausted, got %v", err)
	}
}

func TestSubmitRejectsInactiveQuestion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.createEventWithQuestions(t, "Idle", "PARIS")
	joined := mustJoin(t, f, ev.Code, "Alice")
	questions, _ := f.store.QuestionsByEvent(ctx, ev.ID)

	_, err := f.answers.Submit(ctx, questions[0].ID, joined, "paris", 0)
	if !errors.Is(err, domain.ErrQuestionInactive) {
		t.Fatalf("expected inactive question error, got %v", err)
	}
}

func TestSubmitRejectsQuestionDeactivatedMidGame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	questionID, ids := startWithQuestion(t, f, "PARIS", "Alice")

	// The question was live, then the host ended the event. The commit-time
	// check must see the deactivation, not the earlier state.
	p, err := f.store.ParticipantByID(ctx, ids["Alice"])
	if err != nil {
		t.Fatalf("participant: %v", err)
	}
	if _, err := f.events.Control(ctx, p.EventID, domain.ActionEnd); err != nil {
		t.Fatalf("end: %v", err)
	}

	if _, err := f.answers.Submit(ctx, questionID, ids["Alice"], "paris", 0); !errors.Is(err, domain.ErrQuestionInactive) {
		t.Fatalf("expected inactive question error, got %v", err)
	}
	if _, err := f.store.AnswerByPair(ctx, questionID, ids["Alice"]); !errors.Is(err, domain.ErrAnswerNotFound) {
		t.Fatalf("rejected submission left a ledger entry: %v", err)
	}
}

func TestConcurrentCorrectAnswersGetDistinctRanks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 8
	players := make([]string, n)
	for i := range players {
		players[i] = fmt.Sprintf("player-%d", i)
	}
	questionID, ids := startWithQuestion(t, f, "PARIS", players...)

	var wg sync.WaitGroup
	results := make([]app.SubmitResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := f.answers.Submit(ctx, questionID, ids[players[i]], "paris", int64(i*100))
			if err != nil {
				t.Errorf("submit %d: %v", i, err)
				return
			}
			results[i] = result
		}(i)
	}
	wg.Wait()

	ranks := make(map[int]bool, n)
	for i, r := range results {
		if !r.Correct {
			t.Fatalf("submission %d scored wrong", i)
		}
		if ranks[r.Rank] {
			t.Fatalf("rank %d awarded twice", r.Rank)
		}
		ranks[r.Rank] = true
	}
	for rank := 1; rank <= n; rank++ {
		if !ranks[rank] {
			t.Fatalf("rank %d never awarded", rank)
		}
	}
}

func TestSubmitPublishesOutcome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	questionID, ids := startWithQuestion(t, f, "PARIS", "Alice")

	if _, err := f.answers.Submit(ctx, questionID, ids["Alice"], "WRONG", 0); err != nil {
		t.Fatalf("wrong submit: %v", err)
	}
	if _, err := f.answers.Submit(ctx, questionID, ids["Alice"], "paris", 0); err != nil {
		t.Fatalf("correct submit: %v", err)
	}

	var wrong, submitted, leaderboard bool
	for _, typ := range f.pub.typesSeen() {
		switch typ {
		case realtime.TypeWrongAnswer:
			wrong = true
		case realtime.TypeAnswerSubmitted:
			submitted = true
		case realtime.TypeLeaderboardUpdate:
			leaderboard = true
		}
	}
	if !wrong || !submitted || !leaderboard {
		t.Fatalf("missing notifications: wrong=%v submitted=%v leaderboard=%v", wrong, submitted, leaderboard)
	}
}

func mustJoin(t *testing.T, f *fixture, code, name string) string {
	t.Helper()
	joined, err := f.participants.Join(context.Background(), code, name)
	if err != nil {
		t.Fatalf("join %s: %v", name, err)
	}
	return joined.ParticipantID
}
