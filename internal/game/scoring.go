package game

import (
	"fmt"
	"strings"
)

// Hint classifies one submitted character against the canonical answer.
type Hint string

const (
	HintGreen  Hint = "green"  // right letter, right position
	HintYellow Hint = "yellow" // right letter, wrong position
	HintGray   Hint = "gray"   // letter not (further) present in the answer
)

// Result is the outcome of scoring one submission.
type Result struct {
	Correct bool
	Rank    int
	Points  int
	Hints   []Hint
	Message string
}

// Normalize upper-cases, trims, and collapses internal whitespace runs so
// that "new  york " and "New York" compare equal.
func Normalize(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// PointsForRank maps arrival rank to points: 1st earns 10, 2nd earns 9, down
// to a floor of 1 from the 10th correct answer on.
func PointsForRank(rank int) int {
	points := 11 - rank
	if points < 1 {
		points = 1
	}
	return points
}

// LetterHints compares a normalized submission against the normalized answer
// with spaces removed, two passes: exact-position greens first, then
// displaced yellows scanning unconsumed answer characters left to right.
// A repeated letter is never credited more times than it occurs in the answer.
func LetterHints(submission, answer string) []Hint {
	sub := []rune(strings.ReplaceAll(submission, " ", ""))
	ans := []rune(strings.ReplaceAll(answer, " ", ""))

	hints := make([]Hint, len(sub))
	for i := range hints {
		hints[i] = HintGray
	}
	consumed := make([]bool, len(ans))

	for i := range sub {
		if i < len(ans) && sub[i] == ans[i] {
			hints[i] = HintGreen
			consumed[i] = true
		}
	}

	for i := range sub {
		if hints[i] == HintGreen {
			continue
		}
		for j := range ans {
			if !consumed[j] && sub[i] == ans[j] {
				hints[i] = HintYellow
				consumed[j] = true
				break
			}
		}
	}

	return hints
}

// Score is the pure scoring function: it turns the canonical answer, the
// count of prior correct submissions, and a raw guess into a verdict, a
// points award, and letter hints on a miss. Identical inputs always yield
// identical results.
func Score(answer string, priorCorrect int, submission string) Result {
	normalizedSubmitted := Normalize(submission)
	normalizedAnswer := Normalize(answer)

	if normalizedSubmitted == normalizedAnswer {
		rank := priorCorrect + 1
		points := PointsForRank(rank)
		return Result{
			Correct: true,
			Rank:    rank,
			Points:  points,
			Message: rankMessage(rank, points),
		}
	}

	return Result{
		Hints:   LetterHints(normalizedSubmitted, normalizedAnswer),
		Message: "Not quite! Check the hints and try again.",
	}
}

func rankMessage(rank, points int) string {
	switch rank {
	case 1:
		return "🥇 First to answer! +10 points!"
	case 2:
		return "🥈 Second place! +9 points!"
	case 3:
		return "🥉 Third place! +8 points!"
	default:
		return fmt.Sprintf("+%d points!", points)
	}
}

// AnswerPattern returns the word lengths of the canonical answer, letting
// clients render blank boxes without leaking content.
func AnswerPattern(answer string) []int {
	words := strings.Fields(Normalize(answer))
	pattern := make([]int, len(words))
	for i, w := range words {
		pattern[i] = len([]rune(w))
	}
	return pattern
}
