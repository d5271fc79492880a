package models

import (
	"strings"
	"testing"
)

func TestScoreToLetter(t *testing.T) {
	tests := []struct {
		score, total float64
		want         string
	}{
		{100, 100, "A+"},
		{97, 100, "A+"},
		{96.9, 100, "A"},
		{93, 100, "A"},
		{90, 100, "A-"},
		{87, 100, "B+"},
		{83, 100, "B"},
		{80, 100, "B-"},
		{77, 100, "C+"},
		{73, 100, "C"},
		{70, 100, "C-"},
		{67, 100, "D+"},
		{63, 100, "D"},
		{60, 100, "D-"},
		{59.9, 100, "F"},
		{0, 100, "F"},
		{9.7, 10, "A+"},
		{5, 10, "F"},
	}

	for _, tt := range tests {
		if got := ScoreToLetter(tt.score, tt.total); got != tt.want {
			t.Errorf("ScoreToLetter(%g, %g) = %q, want %q", tt.score, tt.total, got, tt.want)
		}
	}
}

func TestScoreToLetterZeroTotal(t *testing.T) {
	if got := ScoreToLetter(50, 0); got != LetterNone {
		t.Errorf("ScoreToLetter with zero total = %q, want %q", got, LetterNone)
	}
	if got := ScoreToLetter(50, -10); got != LetterNone {
		t.Errorf("ScoreToLetter with negative total = %q, want %q", got, LetterNone)
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		score, total, want float64
	}{
		{50, 100, 50},
		{-5, 100, 0},
		{150, 100, 100},
		{0, 100, 0},
		{100, 100, 100},
	}

	for _, tt := range tests {
		if got := ClampScore(tt.score, tt.total); got != tt.want {
			t.Errorf("ClampScore(%g, %g) = %g, want %g", tt.score, tt.total, got, tt.want)
		}
	}
}

func TestTruncateComment(t *testing.T) {
	short := "all key points covered"
	if got := TruncateComment(short, 25); got != short {
		t.Errorf("short comment changed: %q", got)
	}

	long := strings.Repeat("word ", 30)
	got := TruncateComment(long, 25)
	if words := strings.Fields(got); len(words) != 25 {
		t.Errorf("truncated comment has %d words, want 25", len(words))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated comment missing ellipsis: %q", got)
	}

	if got := TruncateComment("  padded  ", 25); got != "padded" {
		t.Errorf("comment not trimmed: %q", got)
	}
}

func TestPendingGradeSetAverage(t *testing.T) {
	set := &PendingGradeSet{
		Results: []GradeResult{
			{Score: 90, LetterGrade: "A-"},
			{Score: 80, LetterGrade: "B-"},
			{Score: 0, LetterGrade: LetterNone, Error: "oracle timeout (attempt 3/3)"},
		},
	}

	avg, n := set.Average()
	if n != 2 {
		t.Fatalf("graded count = %d, want 2", n)
	}
	if avg != 85 {
		t.Errorf("average = %g, want 85", avg)
	}
}

func TestPendingGradeSetAverageEmpty(t *testing.T) {
	set := &PendingGradeSet{}
	avg, n := set.Average()
	if avg != 0 || n != 0 {
		t.Errorf("empty set average = (%g, %d), want (0, 0)", avg, n)
	}
}
