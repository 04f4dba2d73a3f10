package game

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  new   york ": "NEW YORK",
		"Paris":         "PARIS",
		"\tLe  Mans\n":  "LE MANS",
		"":              "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPointsForRank(t *testing.T) {
	cases := map[int]int{1: 10, 2: 9, 3: 8, 9: 2, 10: 1, 11: 1, 50: 1}
	for rank, want := range cases {
		if got := PointsForRank(rank); got != want {
			t.Fatalf("PointsForRank(%d) = %d, want %d", rank, got, want)
		}
	}
}

func TestLetterHintsDisplacedMatches(t *testing.T) {
	got := LetterHints("RAPIS", "PARIS")
	want := []Hint{HintYellow, HintGreen, HintYellow, HintGreen, HintGreen}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RAPIS vs PARIS = %v, want %v", got, want)
	}
}

func TestLetterHintsDuplicateLettersAreFrequencyAware(t *testing.T) {
	// LEVEL holds two E's and two L's; ELVEL must not be credited for more.
	got := LetterHints("ELVEL", "LEVEL")
	want := []Hint{HintYellow, HintYellow, HintGreen, HintGreen, HintGreen}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ELVEL vs LEVEL = %v, want %v", got, want)
	}

	// Three E's in the guess against two in the answer: only two credited.
	got = LetterHints("EEE", "LEVEL")
	credited := 0
	for _, h := range got {
		if h != HintGray {
			credited++
		}
	}
	if credited != 2 {
		t.Fatalf("EEE vs LEVEL credited %d letters, want 2 (%v)", credited, got)
	}
}

func TestLetterHintsLongerSubmission(t *testing.T) {
	got := LetterHints("PARISX", "PARIS")
	want := []Hint{HintGreen, HintGreen, HintGreen, HintGreen, HintGreen, HintGray}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("PARISX vs PARIS = %v, want %v", got, want)
	}
}

func TestScoreCorrect(t *testing.T) {
	res := Score("New York", 0, "  new   YORK ")
	if !res.Correct || res.Rank != 1 || res.Points != 10 {
		t.Fatalf("expected rank 1 worth 10 points, got %+v", res)
	}
	if res.Hints != nil {
		t.Fatalf("correct answers carry no hints, got %v", res.Hints)
	}

	res = Score("New York", 11, "new york")
	if res.Points != 1 {
		t.Fatalf("points floor is 1, got %d", res.Points)
	}
}

func TestScoreIncorrectIncludesHints(t *testing.T) {
	res := Score("PARIS", 3, "RAPIS")
	if res.Correct || res.Points != 0 || res.Rank != 0 {
		t.Fatalf("expected incorrect zero-point result, got %+v", res)
	}
	if len(res.Hints) != 5 {
		t.Fatalf("expected 5 hints, got %v", res.Hints)
	}
}

func TestScoreIsPure(t *testing.T) {
	a := Score("LEVEL", 2, "ELVEL")
	b := Score("LEVEL", 2, "ELVEL")
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("identical inputs yielded different results: %+v vs %+v", a, b)
	}
}

func TestAnswerPattern(t *testing.T) {
	got := AnswerPattern("new york")
	if !reflect.DeepEqual(got, []int{3, 4}) {
		t.Fatalf("AnswerPattern(new york) = %v, want [3 4]", got)
	}
	if got := AnswerPattern("PARIS"); !reflect.DeepEqual(got, []int{5}) {
		t.Fatalf("AnswerPattern(PARIS) = %v, want [5]", got)
	}
}
