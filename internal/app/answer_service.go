package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"hardword-service/internal/domain"
	"hardword-service/internal/game"
	"hardword-service/internal/realtime"
)

// AnswerService is the ingestion path for submissions. It exclusively owns
// the answer ledger and participant score increments.
type AnswerService struct {
	store Store
	pub   Publisher
	now   func() time.Time

	// maxAttempts caps submissions per (question, participant) pair;
	// zero means unlimited retries.
	maxAttempts int
}

func NewAnswerService(store Store, pub Publisher, maxAttempts int) *AnswerService {
	return &AnswerService{
		store:       store,
		pub:         pub,
		now:         time.Now,
		maxAttempts: maxAttempts,
	}
}

// SubmitResult is what the submitting player sees.
type SubmitResult struct {
	Correct         bool        `json:"correct"`
	AlreadyAnswered bool        `json:"already_answered,omitempty"`
	Points          int         `json:"points,omitempty"`
	Rank            int         `json:"rank,omitempty"`
	Hints           []game.Hint `json:"letter_hints,omitempty"`
	Message         string      `json:"message"`
}

// Submit validates a guess against the currently active question, scores it,
// and atomically updates the ledger and the participant's score. A retry
// that finds the pair already correct short-circuits without rescoring.
func (s *AnswerService) Submit(ctx context.Context, questionID, participantID, rawAnswer string, timeTakenMS int64) (SubmitResult, error) {
	if questionID == "" || participantID == "" || strings.TrimSpace(rawAnswer) == "" {
		return SubmitResult{}, fmt.Errorf("%w: question_id, participant_id, and answer are required", domain.ErrValidation)
	}

	participant, err := s.store.ParticipantByID(ctx, participantID)
	if err != nil {
		return SubmitResult{}, err
	}

	var question domain.Question
	var result SubmitResult
	err = s.store.InTx(ctx, func(tx Store) error {
		// The locked read serializes submissions per question and makes the
		// activity check authoritative: a host advancing the cursor either
		// lands before this point (we see inactive) or waits for our commit.
		question, err = tx.QuestionForUpdate(ctx, questionID)
		if err != nil {
			return err
		}
		if !question.IsActive {
			return domain.ErrQuestionInactive
		}

		existing, err := tx.AnswerByPair(ctx, questionID, participantID)
		exists := err == nil
		if err != nil && !errors.Is(err, domain.ErrAnswerNotFound) {
			return err
		}

		if exists && existing.IsCorrect {
			// Settled pair: duplicate clicks and network retries are safe.
			result = SubmitResult{
				Correct:         true,
				AlreadyAnswered: true,
				Points:          existing.PointsAwarded,
				Message:         "You already answered this correctly!",
			}
			return nil
		}
		if s.maxAttempts > 0 && exists && existing.Attempts >= s.maxAttempts {
			return domain.ErrAttemptsExhausted
		}

		// The rank count and the writes below share one atomic unit, so two
		// racing first-correct submissions cannot both earn rank 1.
		priorCorrect, err := tx.CountCorrectAnswers(ctx, questionID)
		if err != nil {
			return err
		}
		verdict := game.Score(question.Answer, priorCorrect, rawAnswer)

		entry := existing
		if !exists {
			entry = domain.Answer{
				ID:            domain.NewID(),
				QuestionID:    questionID,
				ParticipantID: participantID,
			}
		}
		entry.Attempts++
		entry.AnsweredAt = s.now()

		if verdict.Correct {
			entry.IsCorrect = true
			entry.PointsAwarded = verdict.Points
			entry.TimeTakenMS = timeTakenMS
			if err := tx.UpsertAnswer(ctx, &entry); err != nil {
				return err
			}
			if err := tx.AddScore(ctx, participantID, verdict.Points); err != nil {
				return err
			}
		} else if err := tx.UpsertAnswer(ctx, &entry); err != nil {
			return err
		}

		result = SubmitResult{
			Correct: verdict.Correct,
			Points:  verdict.Points,
			Rank:    verdict.Rank,
			Hints:   verdict.Hints,
			Message: verdict.Message,
		}
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}

	// Fan-out only after the write committed.
	if result.Correct && !result.AlreadyAnswered {
		s.publish(ctx, question.EventID, realtime.Message{
			Type: realtime.TypeAnswerSubmitted,
			Payload: map[string]any{
				"name":   participant.Name,
				"rank":   result.Rank,
				"points": result.Points,
			},
		})
		s.publish(ctx, question.EventID, realtime.Message{Type: realtime.TypeLeaderboardUpdate})
	} else if !result.Correct {
		s.publish(ctx, question.EventID, realtime.Message{
			Type:    realtime.TypeWrongAnswer,
			Payload: map[string]any{"name": participant.Name, "question_id": questionID},
		})
	}

	return result, nil
}

func (s *AnswerService) publish(ctx context.Context, eventID string, msg realtime.Message) {
	if err := s.pub.Publish(ctx, eventID, msg); err != nil {
		log.Printf("publish %s for event %s failed: %v", msg.Type, eventID, err)
	}
}
