package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus is the lifecycle state of a hosted event.
type EventStatus string

const (
	StatusDraft     EventStatus = "draft"
	StatusActive    EventStatus = "active"
	StatusCompleted EventStatus = "completed"
)

// Action is a host command against the event state machine.
type Action string

const (
	ActionStart        Action = "start"
	ActionNextQuestion Action = "next_question"
	ActionEnd          Action = "end"
	ActionReactivate   Action = "reactivate"
)

// Event is one hosted quiz session with its own join code, questions, and participants.
// CurrentQuestionID is empty unless the event is active and a question is showing;
// CurrentQuestionIndex is -1 before the first question.
type Event struct {
	ID                   string      `json:"id"`
	Name                 string      `json:"name"`
	Code                 string      `json:"code"`
	Status               EventStatus `json:"status"`
	CurrentQuestionID    string      `json:"current_question_id,omitempty"`
	CurrentQuestionIndex int         `json:"current_question_index"`
	CreatedAt            time.Time   `json:"created_at"`
}

// Question belongs to exactly one event, ordered by Order within it.
// The canonical answer is stored upper-cased with collapsed whitespace.
type Question struct {
	ID        string     `json:"id"`
	EventID   string     `json:"event_id"`
	Text      string     `json:"question_text"`
	Answer    string     `json:"answer"`
	Order     int        `json:"question_order"`
	IsActive  bool       `json:"is_active"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Participant is a player in one event. Name is unique within the event.
type Participant struct {
	ID       string    `json:"id"`
	EventID  string    `json:"event_id"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joined_at"`
}

// Answer is the single ledger entry for one (question, participant) pair.
// Once IsCorrect is true the pair is settled and never rescored.
type Answer struct {
	ID            string    `json:"id"`
	QuestionID    string    `json:"question_id"`
	ParticipantID string    `json:"participant_id"`
	IsCorrect     bool      `json:"is_correct"`
	PointsAwarded int       `json:"points_awarded"`
	Attempts      int       `json:"attempts"`
	TimeTakenMS   int64     `json:"time_taken_ms,omitempty"`
	AnsweredAt    time.Time `json:"answered_at"`
}

// Transition is a state-machine step computed by the event service and
// applied atomically by the store, conditioned on From still being the
// stored status.
type Transition struct {
	EventID              string
	From                 EventStatus
	To                   EventStatus
	CurrentQuestionID    string
	CurrentQuestionIndex int
	ActivateQuestionID   string
	DeactivateQuestionID string
	DeactivateAll        bool
	StartedAt            time.Time
}

// QuestionPublic is the question view sent to players: the answer itself is
// replaced by its word-length pattern (e.g. [3 4] for "NEW YORK").
type QuestionPublic struct {
	ID             string `json:"id"`
	Text           string `json:"question_text"`
	AnswerPattern  []int  `json:"answer_pattern"`
	Order          int    `json:"question_order"`
	TotalQuestions int    `json:"total_questions"`
}

// CurrentQuestion is the authoritative snapshot players poll or re-fetch
// after a push notification.
type CurrentQuestion struct {
	EventStatus    EventStatus     `json:"event_status"`
	EventName      string          `json:"event_name"`
	Question       *QuestionPublic `json:"current_question"`
	TotalQuestions int             `json:"total_questions"`
	SecondsElapsed int             `json:"seconds_elapsed,omitempty"`
}

// LeaderboardEntry is one scoreboard row, ordered by score descending.
type LeaderboardEntry struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Score         int    `json:"score"`
	TotalTimeMS   int64  `json:"total_time_ms,omitempty"`
}

// CorrectAnswer is the host's per-question view of who got it right.
type CorrectAnswer struct {
	ParticipantName string    `json:"participant_name"`
	Points          int       `json:"points"`
	AnsweredAt      time.Time `json:"time"`
}

// JoinResult reports an idempotent join: Rejoined is true when the name was
// already registered and the existing identity was reused.
type JoinResult struct {
	ParticipantID string `json:"participant_id"`
	EventID       string `json:"event_id"`
	EventName     string `json:"event_name"`
	Rejoined      bool   `json:"rejoined"`
}

// NewID returns a fresh entity identifier.
func NewID() string {
	return uuid.NewString()
}
