package oracle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/profdeck/canvas-grader/internal/models"
	"github.com/rs/zerolog"
)

// fakeRunner replays scripted replies in order. A nil error with an empty
// script panics the test early instead of hiding a miscount.
type fakeRunner struct {
	replies []reply
	calls   int
	prompts []string
}

type reply struct {
	out string
	err error
}

func (f *fakeRunner) Run(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	if f.calls >= len(f.replies) {
		panic("fakeRunner: more calls than scripted replies")
	}
	f.prompts = append(f.prompts, strings.Join(args, " "))
	r := f.replies[f.calls]
	f.calls++
	return r.out, r.err
}

func newTestScorer(runner commandRunner) *Scorer {
	return &Scorer{
		runner:      runner,
		model:       "test-model",
		timeout:     time.Second,
		maxAttempts: 3,
		logger:      zerolog.Nop(),
	}
}

func testRequirement() *models.GradingRequirement {
	return &models.GradingRequirement{
		CourseID:       101,
		AssignmentID:   202,
		Name:           "Essay 1",
		Description:    "Discuss the assigned reading.",
		PointsPossible: 100,
	}
}

func TestScoreSubmissionExtractsJSONFromFraming(t *testing.T) {
	runner := &fakeRunner{replies: []reply{
		{out: "Sure, here is the grade:\n{\"score\": 88, \"letter_grade\": \"B+\", \"comments\": \"missing the conclusion section\"}\nLet me know if you need anything else."},
	}}
	s := newTestScorer(runner)

	out := s.ScoreSubmission(context.Background(), testRequirement(), "Ada", "essay text")
	if out.Err != "" {
		t.Fatalf("unexpected error: %s", out.Err)
	}
	if out.Score != 88 {
		t.Errorf("Score = %g, want 88", out.Score)
	}
	if out.LetterGrade != "B+" {
		t.Errorf("LetterGrade = %q, want B+", out.LetterGrade)
	}
	if out.Comments != "missing the conclusion section" {
		t.Errorf("Comments = %q", out.Comments)
	}
}

func TestScoreSubmissionClampsScore(t *testing.T) {
	runner := &fakeRunner{replies: []reply{
		{out: `{"score": 140, "letter_grade": "A+", "comments": ""}`},
	}}
	s := newTestScorer(runner)

	out := s.ScoreSubmission(context.Background(), testRequirement(), "Ada", "text")
	if out.Score != 100 {
		t.Errorf("Score = %g, want clamped to 100", out.Score)
	}
}

func TestScoreSubmissionStringScore(t *testing.T) {
	runner := &fakeRunner{replies: []reply{
		{out: `{"score": "73.5", "letter_grade": "C", "comments": "thin on detail"}`},
	}}
	s := newTestScorer(runner)

	out := s.ScoreSubmission(context.Background(), testRequirement(), "Ada", "text")
	if out.Score != 73.5 {
		t.Errorf("Score = %g, want 73.5", out.Score)
	}
}

func TestScoreSubmissionMissingScoreDefaultsToZero(t *testing.T) {
	runner := &fakeRunner{replies: []reply{
		{out: `{"letter_grade": "", "comments": "could not assess"}`},
	}}
	s := newTestScorer(runner)

	out := s.ScoreSubmission(context.Background(), testRequirement(), "Ada", "text")
	if out.Err != "" {
		t.Fatalf("unexpected error: %s", out.Err)
	}
	if out.Score != 0 {
		t.Errorf("Score = %g, want 0", out.Score)
	}
	if out.LetterGrade != "F" {
		t.Errorf("LetterGrade = %q, want computed F", out.LetterGrade)
	}
}

func TestScoreSubmissionTruncatesComment(t *testing.T) {
	long := strings.Repeat("missing ", 40)
	runner := &fakeRunner{replies: []reply{
		{out: `{"score": 60, "letter_grade": "D-", "comments": "` + strings.TrimSpace(long) + `"}`},
	}}
	s := newTestScorer(runner)

	out := s.ScoreSubmission(context.Background(), testRequirement(), "Ada", "text")
	if words := strings.Fields(out.Comments); len(words) > 25 {
		t.Errorf("comment has %d words, want at most 25", len(words))
	}
}

func TestScoreSubmissionFullScoreGetsCannedComment(t *testing.T) {
	runner := &fakeRunner{replies: []reply{
		{out: `{"score": 100, "letter_grade": "A+", "comments": ""}`},
	}}
	s := newTestScorer(runner)

	out := s.ScoreSubmission(context.Background(), testRequirement(), "Ada", "text")
	if out.Comments == "" {
		t.Fatal("full score with empty comment should get a canned comment")
	}
	found := false
	for _, c := range fullScoreComments {
		if out.Comments == c {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("comment %q is not from the canned pool", out.Comments)
	}
}

func TestScoreSubmissionRetriesTimeoutOnly(t *testing.T) {
	runner := &fakeRunner{replies: []reply{
		{err: ErrTimeout},
		{err: ErrTimeout},
		{out: `{"score": 95, "letter_grade": "A", "comments": "good"}`},
	}}
	s := newTestScorer(runner)

	out := s.ScoreSubmission(context.Background(), testRequirement(), "Ada", "text")
	if out.Err != "" {
		t.Fatalf("unexpected error after recovery: %s", out.Err)
	}
	if runner.calls != 3 {
		t.Errorf("oracle called %d times, want 3", runner.calls)
	}
	if out.Score != 95 {
		t.Errorf("Score = %g, want 95", out.Score)
	}
}

func TestScoreSubmissionExhaustsRetries(t *testing.T) {
	runner := &fakeRunner{replies: []reply{
		{err: ErrTimeout},
		{err: ErrTimeout},
		{err: ErrTimeout},
	}}
	s := newTestScorer(runner)

	out := s.ScoreSubmission(context.Background(), testRequirement(), "Ada", "text")
	if out.Err == "" {
		t.Fatal("expected an error after exhausted retries")
	}
	if !strings.Contains(out.Err, "attempt 3/3") {
		t.Errorf("Err = %q, want attempt count", out.Err)
	}
	if out.LetterGrade != models.LetterNone {
		t.Errorf("LetterGrade = %q, want %q", out.LetterGrade, models.LetterNone)
	}
	if runner.calls != 3 {
		t.Errorf("oracle called %d times, want 3", runner.calls)
	}
}

func TestScoreSubmissionNonTimeoutFailsImmediately(t *testing.T) {
	runner := &fakeRunner{replies: []reply{
		{err: errors.New("boom")},
	}}
	s := newTestScorer(runner)

	out := s.ScoreSubmission(context.Background(), testRequirement(), "Ada", "text")
	if out.Err == "" {
		t.Fatal("expected an error")
	}
	if runner.calls != 1 {
		t.Errorf("oracle called %d times, want 1 (no retry on non-timeout)", runner.calls)
	}
}

func TestScoreSubmissionNoJSONInReply(t *testing.T) {
	runner := &fakeRunner{replies: []reply{
		{out: "I cannot grade this submission."},
	}}
	s := newTestScorer(runner)

	out := s.ScoreSubmission(context.Background(), testRequirement(), "Ada", "text")
	if out.Err == "" || !strings.Contains(out.Err, "no JSON") {
		t.Errorf("Err = %q, want no-JSON error", out.Err)
	}
}

func TestBuildPromptTruncation(t *testing.T) {
	req := testRequirement()
	req.Description = strings.Repeat("d", 3000)
	s := newTestScorer(&fakeRunner{})

	prompt := s.buildPrompt(req, "Ada", strings.Repeat("s", 5000))
	if strings.Contains(prompt, strings.Repeat("d", 2501)) {
		t.Error("description not truncated")
	}
	if strings.Contains(prompt, strings.Repeat("s", 4001)) {
		t.Error("submission text not truncated")
	}
	if !strings.Contains(prompt, "key-point based") {
		t.Error("prompt without rubric should use key-point scoring")
	}
}

func TestBuildPromptTruncatesOnRuneBoundary(t *testing.T) {
	req := testRequirement()
	req.Description = strings.Repeat("é", 3000)
	s := newTestScorer(&fakeRunner{})

	prompt := s.buildPrompt(req, "Ada", strings.Repeat("世", 5000))
	if !utf8.ValidString(prompt) {
		t.Fatal("truncation produced invalid UTF-8")
	}
	if strings.Contains(prompt, strings.Repeat("é", 2501)) {
		t.Error("multi-byte description not truncated")
	}
	if strings.Contains(prompt, strings.Repeat("世", 4001)) {
		t.Error("multi-byte submission text not truncated")
	}
}

func TestBuildPromptRubric(t *testing.T) {
	req := testRequirement()
	req.Rubric = []models.RubricCriterion{
		{Description: "Thesis", Points: 40, Detail: "clear argument"},
		{Description: "Evidence", Points: 60},
	}
	s := newTestScorer(&fakeRunner{})

	prompt := s.buildPrompt(req, "Ada", "text")
	if !strings.Contains(prompt, "RUBRIC") {
		t.Error("prompt missing rubric section")
	}
	if !strings.Contains(prompt, "Thesis (40 pts): clear argument") {
		t.Error("prompt missing rubric criterion line")
	}
}
