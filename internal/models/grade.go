package models

import (
	"strings"
)

// LetterNone marks a result whose score carries no meaning (failed oracle
// call or a skipped entry).
const LetterNone = "—"

type GradeResult struct {
	UserID      int64   `json:"user_id"`
	StudentName string  `json:"student_name"`
	Score       float64 `json:"score"`
	LetterGrade string  `json:"letter_grade"`
	Comments    string  `json:"comments"`
	Error       string  `json:"error,omitempty"`
}

// PendingGradeSet is the editable output of one grading run. It exists
// only between run completion and a terminal review action.
type PendingGradeSet struct {
	RunID       string             `json:"run_id"`
	Requirement GradingRequirement `json:"requirement"`
	Results     []GradeResult      `json:"results"`
	Skipped     int                `json:"skipped"`
}

var letterBands = []struct {
	pct    float64
	letter string
}{
	{97, "A+"},
	{93, "A"},
	{90, "A-"},
	{87, "B+"},
	{83, "B"},
	{80, "B-"},
	{77, "C+"},
	{73, "C"},
	{70, "C-"},
	{67, "D+"},
	{63, "D"},
	{60, "D-"},
}

// ScoreToLetter maps a score to its letter grade on the percentage bands.
func ScoreToLetter(score, total float64) string {
	if total <= 0 {
		return LetterNone
	}
	pct := score / total * 100
	for _, band := range letterBands {
		if pct >= band.pct {
			return band.letter
		}
	}
	return "F"
}

// ClampScore bounds a raw score into [0, total].
func ClampScore(score, total float64) float64 {
	if score < 0 {
		return 0
	}
	if score > total {
		return total
	}
	return score
}

// TruncateComment enforces the soft word cap on oracle comments.
func TruncateComment(comment string, maxWords int) string {
	words := strings.Fields(comment)
	if len(words) <= maxWords {
		return strings.TrimSpace(comment)
	}
	return strings.Join(words[:maxWords], " ") + "…"
}

// Average returns the mean score over results that carry a meaningful
// score, and the count of results it covers.
func (p *PendingGradeSet) Average() (float64, int) {
	var sum float64
	var n int
	for _, r := range p.Results {
		if r.Error != "" || r.LetterGrade == LetterNone {
			continue
		}
		sum += r.Score
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}
