package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"hardword-service/internal/domain"
	"hardword-service/internal/game"
	"hardword-service/internal/realtime"
)

// ParticipantService handles joining and the read-side snapshots players and
// presentation views poll or re-fetch after a push notification.
type ParticipantService struct {
	store     Store
	questions QuestionSource
	pub       Publisher
	now       func() time.Time
}

func NewParticipantService(store Store, questions QuestionSource, pub Publisher) *ParticipantService {
	return &ParticipantService{
		store:     store,
		questions: questions,
		pub:       pub,
		now:       time.Now,
	}
}

// Join registers a participant by event code. Joining again with the same
// name reuses the existing identity instead of creating a duplicate.
func (s *ParticipantService) Join(ctx context.Context, eventCode, name string) (domain.JoinResult, error) {
	name = strings.TrimSpace(name)
	if strings.TrimSpace(eventCode) == "" || name == "" {
		return domain.JoinResult{}, fmt.Errorf("%w: event code and name are required", domain.ErrValidation)
	}

	ev, err := s.store.EventByCode(ctx, strings.ToUpper(strings.TrimSpace(eventCode)))
	if err != nil {
		return domain.JoinResult{}, err
	}
	if ev.Status == domain.StatusCompleted {
		return domain.JoinResult{}, domain.ErrEventCompleted
	}

	existing, err := s.store.ParticipantByName(ctx, ev.ID, name)
	if err == nil {
		return domain.JoinResult{
			ParticipantID: existing.ID,
			EventID:       ev.ID,
			EventName:     ev.Name,
			Rejoined:      true,
		}, nil
	}
	if !errors.Is(err, domain.ErrParticipantNotFound) {
		return domain.JoinResult{}, err
	}

	p := domain.Participant{
		ID:       domain.NewID(),
		EventID:  ev.ID,
		Name:     name,
		JoinedAt: s.now(),
	}
	if err := s.store.CreateParticipant(ctx, &p); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Lost the uniqueness race: the other writer's row is ours too.
			winner, rerr := s.store.ParticipantByName(ctx, ev.ID, name)
			if rerr != nil {
				return domain.JoinResult{}, rerr
			}
			return domain.JoinResult{
				ParticipantID: winner.ID,
				EventID:       ev.ID,
				EventName:     ev.Name,
				Rejoined:      true,
			}, nil
		}
		return domain.JoinResult{}, err
	}

	s.publish(ctx, ev.ID, realtime.Message{
		Type:    realtime.TypeParticipantJoined,
		Payload: map[string]any{"name": name},
	})

	return domain.JoinResult{
		ParticipantID: p.ID,
		EventID:       ev.ID,
		EventName:     ev.Name,
	}, nil
}

// CurrentQuestion returns the event status and the active question stripped
// of its answer; clients render blank boxes from the word-length pattern.
func (s *ParticipantService) CurrentQuestion(ctx context.Context, eventID string) (domain.CurrentQuestion, error) {
	ev, err := s.store.EventByID(ctx, eventID)
	if err != nil {
		return domain.CurrentQuestion{}, err
	}
	questions, err := s.questions.QuestionsByEvent(ctx, eventID)
	if err != nil {
		return domain.CurrentQuestion{}, err
	}

	snapshot := domain.CurrentQuestion{
		EventStatus:    ev.Status,
		EventName:      ev.Name,
		TotalQuestions: len(questions),
	}
	if ev.Status != domain.StatusActive || ev.CurrentQuestionID == "" {
		return snapshot, nil
	}

	for _, q := range questions {
		if q.ID != ev.CurrentQuestionID {
			continue
		}
		snapshot.Question = &domain.QuestionPublic{
			ID:             q.ID,
			Text:           q.Text,
			AnswerPattern:  game.AnswerPattern(q.Answer),
			Order:          q.Order,
			TotalQuestions: len(questions),
		}
		if q.StartedAt != nil {
			snapshot.SecondsElapsed = int(s.now().Sub(*q.StartedAt).Seconds())
		}
		return snapshot, nil
	}
	// Cursor points at a question the cache no longer sees; treat as no
	// question showing rather than leaking a stale one.
	return snapshot, nil
}

// Leaderboard returns participants ordered by score descending, with each
// player's summed answer time as a tiebreaker signal for display.
func (s *ParticipantService) Leaderboard(ctx context.Context, eventID string) ([]domain.LeaderboardEntry, error) {
	if _, err := s.store.EventByID(ctx, eventID); err != nil {
		return nil, err
	}
	participants, err := s.store.ParticipantsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	totals, err := s.store.CorrectAnswerTotals(ctx, eventID)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		entries = append(entries, domain.LeaderboardEntry{
			ParticipantID: p.ID,
			Name:          p.Name,
			Score:         p.Score,
			TotalTimeMS:   totals[p.ID],
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].TotalTimeMS != entries[j].TotalTimeMS {
			return entries[i].TotalTimeMS < entries[j].TotalTimeMS
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

func (s *ParticipantService) publish(ctx context.Context, eventID string, msg realtime.Message) {
	if err := s.pub.Publish(ctx, eventID, msg); err != nil {
		log.Printf("publish %s for event %s failed: %v", msg.Type, eventID, err)
	}
}
