// Package postgres implements the durable Store on pgx. Atomicity comes
// from database transactions, conditional UPDATEs checked via rows affected,
// and the unique indexes on (event_id, name) and (question_id, participant_id).
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hardword-service/internal/app"
	"hardword-service/internal/domain"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const uniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the same query
// methods serve plain calls and transactional ones.
type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
	q    querier
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

// InTx runs fn inside one database transaction. Calls on the passed store
// hit the transaction, so a row count composes atomically with a later
// write. Nested calls reuse the open transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx app.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txStore := &Store{q: tx}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// --- events ---

func (s *Store) CreateEvent(ctx context.Context, ev *domain.Event) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO events (id, name, code, status, current_question_index, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.Name, ev.Code, string(ev.Status), ev.CurrentQuestionIndex, ev.CreatedAt)
	return mapWriteErr(err)
}

const eventColumns = `id, name, code, status, COALESCE(current_question_id, ''), current_question_index, created_at`

func (s *Store) EventByID(ctx context.Context, id string) (domain.Event, error) {
	row := s.q.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	return scanEvent(row)
}

func (s *Store) EventByCode(ctx context.Context, code string) (domain.Event, error) {
	row := s.q.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE code = $1`, code)
	return scanEvent(row)
}

func scanEvent(row pgx.Row) (domain.Event, error) {
	var ev domain.Event
	var status string
	err := row.Scan(&ev.ID, &ev.Name, &ev.Code, &status, &ev.CurrentQuestionID, &ev.CurrentQuestionIndex, &ev.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Event{}, domain.ErrEventNotFound
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("scan event: %w", err)
	}
	ev.Status = domain.EventStatus(status)
	return ev, nil
}

func (s *Store) ListEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := s.q.Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *Store) RenameEvent(ctx context.Context, id, name string) error {
	tag, err := s.q.Exec(ctx, `UPDATE events SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("rename event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

// ApplyTransition performs the compare-and-swap on the event row first; when
// the stored status no longer matches the precondition nothing else runs.
func (s *Store) ApplyTransition(ctx context.Context, t domain.Transition) error {
	return s.InTx(ctx, func(store app.Store) error {
		tx := store.(*Store)

		tag, err := tx.q.Exec(ctx, `
			UPDATE events
			SET status = $2, current_question_id = NULLIF($3, ''), current_question_index = $4
			WHERE id = $1 AND status = $5`,
			t.EventID, string(t.To), t.CurrentQuestionID, t.CurrentQuestionIndex, string(t.From))
		if err != nil {
			return fmt.Errorf("transition event: %w", err)
		}
		if tag.RowsAffected() == 0 {
			if _, err := tx.EventByID(ctx, t.EventID); err != nil {
				return err
			}
			return domain.ErrInvalidTransition
		}

		if t.DeactivateAll {
			if _, err := tx.q.Exec(ctx, `UPDATE questions SET is_active = FALSE WHERE event_id = $1`, t.EventID); err != nil {
				return fmt.Errorf("deactivate questions: %w", err)
			}
		} else if t.DeactivateQuestionID != "" {
			if _, err := tx.q.Exec(ctx, `UPDATE questions SET is_active = FALSE WHERE id = $1`, t.DeactivateQuestionID); err != nil {
				return fmt.Errorf("deactivate question: %w", err)
			}
		}
		if t.ActivateQuestionID != "" {
			tag, err := tx.q.Exec(ctx, `UPDATE questions SET is_active = TRUE, started_at = $2 WHERE id = $1`,
				t.ActivateQuestionID, t.StartedAt)
			if err != nil {
				return fmt.Errorf("activate question: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return domain.ErrQuestionNotFound
			}
		}
		return nil
	})
}

// --- questions ---

func (s *Store) AddQuestion(ctx context.Context, q *domain.Question) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO questions (id, event_id, question_text, answer, question_order, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)`,
		q.ID, q.EventID, q.Text, q.Answer, q.Order, q.CreatedAt)
	return mapWriteErr(err)
}

func (s *Store) DeleteQuestion(ctx context.Context, eventID, questionID string) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM questions WHERE id = $1 AND event_id = $2`, questionID, eventID)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

const questionColumns = `id, event_id, question_text, answer, question_order, is_active, started_at, created_at`

func (s *Store) QuestionByID(ctx context.Context, id string) (domain.Question, error) {
	row := s.q.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	return scanQuestion(row)
}

// QuestionForUpdate takes the question's row lock. Concurrent submissions
// for the same question queue here, so each transaction's correct-answer
// count sees every previously committed rank.
func (s *Store) QuestionForUpdate(ctx context.Context, id string) (domain.Question, error) {
	row := s.q.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1 FOR UPDATE`, id)
	return scanQuestion(row)
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var q domain.Question
	var startedAt *time.Time
	err := row.Scan(&q.ID, &q.EventID, &q.Text, &q.Answer, &q.Order, &q.IsActive, &startedAt, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("scan question: %w", err)
	}
	q.StartedAt = startedAt
	return q, nil
}

func (s *Store) QuestionsByEvent(ctx context.Context, eventID string) ([]domain.Question, error) {
	rows, err := s.q.Query(ctx, `SELECT `+questionColumns+` FROM questions WHERE event_id = $1 ORDER BY question_order`, eventID)
	if err != nil {
		return nil, fmt.Errorf("questions by event: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// --- participants ---

func (s *Store) CreateParticipant(ctx context.Context, p *domain.Participant) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO participants (id, event_id, name, score, joined_at)
		VALUES ($1, $2, $3, 0, $4)`,
		p.ID, p.EventID, p.Name, p.JoinedAt)
	return mapWriteErr(err)
}

const participantColumns = `id, event_id, name, score, joined_at`

func (s *Store) ParticipantByID(ctx context.Context, id string) (domain.Participant, error) {
	row := s.q.QueryRow(ctx, `SELECT `+participantColumns+` FROM participants WHERE id = $1`, id)
	return scanParticipant(row)
}

func (s *Store) ParticipantByName(ctx context.Context, eventID, name string) (domain.Participant, error) {
	row := s.q.QueryRow(ctx, `SELECT `+participantColumns+` FROM participants WHERE event_id = $1 AND name = $2`, eventID, name)
	return scanParticipant(row)
}

func scanParticipant(row pgx.Row) (domain.Participant, error) {
	var p domain.Participant
	err := row.Scan(&p.ID, &p.EventID, &p.Name, &p.Score, &p.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("scan participant: %w", err)
	}
	return p, nil
}

func (s *Store) ParticipantsByEvent(ctx context.Context, eventID string) ([]domain.Participant, error) {
	rows, err := s.q.Query(ctx, `SELECT `+participantColumns+` FROM participants WHERE event_id = $1 ORDER BY joined_at`, eventID)
	if err != nil {
		return nil, fmt.Errorf("participants by event: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Participant, 0)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) AddScore(ctx context.Context, participantID string, points int) error {
	tag, err := s.q.Exec(ctx, `UPDATE participants SET score = score + $2 WHERE id = $1`, participantID, points)
	if err != nil {
		return fmt.Errorf("add score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

// --- answers ---

const answerColumns = `id, question_id, participant_id, is_correct, points_awarded, attempts, COALESCE(time_taken_ms, 0), answered_at`

func (s *Store) AnswerByPair(ctx context.Context, questionID, participantID string) (domain.Answer, error) {
	row := s.q.QueryRow(ctx, `SELECT `+answerColumns+` FROM answers WHERE question_id = $1 AND participant_id = $2`,
		questionID, participantID)
	return scanAnswer(row)
}

func scanAnswer(row pgx.Row) (domain.Answer, error) {
	var a domain.Answer
	err := row.Scan(&a.ID, &a.QuestionID, &a.ParticipantID, &a.IsCorrect, &a.PointsAwarded, &a.Attempts, &a.TimeTakenMS, &a.AnsweredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Answer{}, domain.ErrAnswerNotFound
	}
	if err != nil {
		return domain.Answer{}, fmt.Errorf("scan answer: %w", err)
	}
	return a, nil
}

func (s *Store) CountCorrectAnswers(ctx context.Context, questionID string) (int, error) {
	var count int
	err := s.q.QueryRow(ctx, `SELECT count(*) FROM answers WHERE question_id = $1 AND is_correct`, questionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count correct answers: %w", err)
	}
	return count, nil
}

func (s *Store) CorrectAnswersByQuestion(ctx context.Context, questionID string) ([]domain.Answer, error) {
	rows, err := s.q.Query(ctx, `SELECT `+answerColumns+` FROM answers WHERE question_id = $1 AND is_correct ORDER BY answered_at`, questionID)
	if err != nil {
		return nil, fmt.Errorf("correct answers: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Answer, 0)
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) UpsertAnswer(ctx context.Context, a *domain.Answer) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO answers (id, question_id, participant_id, is_correct, points_awarded, attempts, time_taken_ms, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, 0), $8)
		ON CONFLICT (question_id, participant_id) DO UPDATE
		SET is_correct = EXCLUDED.is_correct,
		    points_awarded = EXCLUDED.points_awarded,
		    attempts = EXCLUDED.attempts,
		    time_taken_ms = EXCLUDED.time_taken_ms,
		    answered_at = EXCLUDED.answered_at`,
		a.ID, a.QuestionID, a.ParticipantID, a.IsCorrect, a.PointsAwarded, a.Attempts, a.TimeTakenMS, a.AnsweredAt)
	if err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	return nil
}

func (s *Store) CorrectAnswerTotals(ctx context.Context, eventID string) (map[string]int64, error) {
	rows, err := s.q.Query(ctx, `
		SELECT a.participant_id, COALESCE(SUM(a.time_taken_ms), 0)
		FROM answers a
		JOIN questions q ON q.id = a.question_id
		WHERE q.event_id = $1 AND a.is_correct
		GROUP BY a.participant_id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("answer totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var participantID string
		var total int64
		if err := rows.Scan(&participantID, &total); err != nil {
			return nil, fmt.Errorf("scan total: %w", err)
		}
		totals[participantID] = total
	}
	return totals, rows.Err()
}

func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrConflict
	}
	return err
}

var _ app.Store = (*Store)(nil)
