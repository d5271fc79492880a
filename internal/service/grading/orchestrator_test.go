package grading

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/profdeck/canvas-grader/internal/models"
	"github.com/profdeck/canvas-grader/internal/service/oracle"
	"github.com/rs/zerolog"
)

type fakeExtractor struct {
	content models.ExtractedContent
}

func (f *fakeExtractor) ExtractAttachment(ctx context.Context, att models.AttachmentRef) models.ExtractedContent {
	c := f.content
	c.Filename = att.Filename
	return c
}

// fakeScorer returns a score derived from the student name and records
// every submission text it saw.
type fakeScorer struct {
	mu     sync.Mutex
	delay  bool
	calls  int
	texts  map[string]string
	scores map[string]float64
}

func (f *fakeScorer) ScoreSubmission(ctx context.Context, req *models.GradingRequirement, studentName, submissionText string) oracle.ScoreOutcome {
	if f.delay {
		time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
	}

	f.mu.Lock()
	f.calls++
	if f.texts == nil {
		f.texts = make(map[string]string)
	}
	f.texts[studentName] = submissionText
	score := f.scores[studentName]
	f.mu.Unlock()

	return oracle.ScoreOutcome{
		Score:       score,
		LetterGrade: models.ScoreToLetter(score, req.PointsPossible),
		Comments:    "noted",
	}
}

func submittedSub(userID int64, name, body string) models.Submission {
	return models.Submission{
		UserID:        userID,
		UserName:      name,
		Body:          body,
		WorkflowState: models.WorkflowSubmitted,
	}
}

func testReq() *models.GradingRequirement {
	return &models.GradingRequirement{
		CourseID:       1,
		AssignmentID:   2,
		Name:           "Lab Report",
		PointsPossible: 100,
	}
}

func TestGradeAllPreservesInputOrder(t *testing.T) {
	scorer := &fakeScorer{delay: true, scores: map[string]float64{}}
	var subs []models.Submission
	for i := 1; i <= 20; i++ {
		name := fmt.Sprintf("Student %02d", i)
		subs = append(subs, submittedSub(int64(i), name, "work"))
		scorer.scores[name] = float64(i)
	}

	o := NewOrchestrator(&fakeExtractor{}, scorer, 8, zerolog.Nop())
	set := o.GradeAll(context.Background(), testReq(), subs, nil)

	if len(set.Results) != 20 {
		t.Fatalf("got %d results, want 20", len(set.Results))
	}
	for i, r := range set.Results {
		if r.UserID != int64(i+1) {
			t.Fatalf("result %d has user %d, want %d (input order lost)", i, r.UserID, i+1)
		}
		if r.Score != float64(i+1) {
			t.Errorf("result %d score = %g, want %g", i, r.Score, float64(i+1))
		}
	}
}

func TestGradeAllSkipsAlreadyGraded(t *testing.T) {
	scorer := &fakeScorer{}
	done := 88.0
	subs := []models.Submission{
		{UserID: 1, UserName: "A", WorkflowState: models.WorkflowGraded, Score: &done},
		{UserID: 2, UserName: "B", WorkflowState: models.WorkflowGraded, Score: &done},
	}

	o := NewOrchestrator(&fakeExtractor{}, scorer, 4, zerolog.Nop())
	set := o.GradeAll(context.Background(), testReq(), subs, nil)

	if len(set.Results) != 0 {
		t.Errorf("got %d results, want 0", len(set.Results))
	}
	if set.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", set.Skipped)
	}
	if scorer.calls != 0 {
		t.Errorf("oracle called %d times for all-graded input", scorer.calls)
	}
	if set.RunID == "" {
		t.Error("empty run still needs a run ID")
	}
}

func TestGradeAllUnsubmittedShortcut(t *testing.T) {
	scorer := &fakeScorer{}
	subs := []models.Submission{
		// Unsubmitted but carrying a leftover attachment: eligible, yet
		// not real work.
		{
			UserID:        7,
			UserName:      "Ghost",
			WorkflowState: models.WorkflowUnsubmitted,
			Attachments:   []models.AttachmentRef{{Filename: "old.pdf"}},
		},
	}

	o := NewOrchestrator(&fakeExtractor{}, scorer, 4, zerolog.Nop())
	set := o.GradeAll(context.Background(), testReq(), subs, nil)

	if len(set.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(set.Results))
	}
	r := set.Results[0]
	if r.Score != 0 {
		t.Errorf("Score = %g, want 0", r.Score)
	}
	if r.Comments != "No submission" {
		t.Errorf("Comments = %q, want No submission", r.Comments)
	}
	if r.LetterGrade != "F" {
		t.Errorf("LetterGrade = %q, want F", r.LetterGrade)
	}
	if scorer.calls != 0 {
		t.Errorf("oracle called %d times for unsubmitted entry", scorer.calls)
	}
}

func TestGradeAllAssemblesAttachmentText(t *testing.T) {
	scorer := &fakeScorer{scores: map[string]float64{"Ada": 90}}
	extractor := &fakeExtractor{content: models.ExtractedContent{Text: "extracted words"}}

	sub := submittedSub(1, "Ada", "inline body")
	sub.Attachments = []models.AttachmentRef{{Filename: "essay.docx"}}

	o := NewOrchestrator(extractor, scorer, 1, zerolog.Nop())
	o.GradeAll(context.Background(), testReq(), []models.Submission{sub}, nil)

	text := scorer.texts["Ada"]
	if !strings.HasPrefix(text, "inline body") {
		t.Errorf("body not first: %q", text)
	}
	if !strings.Contains(text, "── Attachment: essay.docx ──") {
		t.Errorf("missing attachment header: %q", text)
	}
	if !strings.Contains(text, "extracted words") {
		t.Errorf("missing extracted text: %q", text)
	}
}

func TestGradeAllAttachmentErrorBecomesNote(t *testing.T) {
	scorer := &fakeScorer{scores: map[string]float64{"Ada": 50}}
	extractor := &fakeExtractor{content: models.ExtractedContent{Error: "file too large (15 MB) to preview"}}

	sub := submittedSub(1, "Ada", "")
	sub.Attachments = []models.AttachmentRef{{Filename: "huge.pdf"}}

	o := NewOrchestrator(extractor, scorer, 1, zerolog.Nop())
	set := o.GradeAll(context.Background(), testReq(), []models.Submission{sub}, nil)

	text := scorer.texts["Ada"]
	if !strings.Contains(text, "[Attachment huge.pdf: file too large (15 MB) to preview]") {
		t.Errorf("missing bracketed note: %q", text)
	}
	// An extraction failure is context for the oracle, not a result error.
	if set.Results[0].Error != "" {
		t.Errorf("result Error = %q, want empty", set.Results[0].Error)
	}
}

func TestGradeAllProgressReachesTotal(t *testing.T) {
	scorer := &fakeScorer{scores: map[string]float64{}}
	var subs []models.Submission
	for i := 1; i <= 5; i++ {
		subs = append(subs, submittedSub(int64(i), fmt.Sprintf("S%d", i), "w"))
	}

	var mu sync.Mutex
	var lastCompleted, lastTotal int

	o := NewOrchestrator(&fakeExtractor{}, scorer, 3, zerolog.Nop())
	o.GradeAll(context.Background(), testReq(), subs, func(completed, total int, line string) {
		mu.Lock()
		lastCompleted, lastTotal = completed, total
		mu.Unlock()
	})

	if lastCompleted != 5 || lastTotal != 5 {
		t.Errorf("final progress = %d/%d, want 5/5", lastCompleted, lastTotal)
	}

	runID, completed, total, students := o.Progress()
	if runID == "" {
		t.Error("Progress missing run ID")
	}
	if completed != 5 || total != 5 {
		t.Errorf("Progress = %d/%d, want 5/5", completed, total)
	}
	for name, status := range students {
		if status != StatusDone {
			t.Errorf("student %s status = %q, want %q", name, status, StatusDone)
		}
	}
}

type fakeArchiver struct {
	mu    sync.Mutex
	texts map[int64]string
}

func (f *fakeArchiver) StoreExtract(ctx context.Context, runID string, userID int64, studentName string, text []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.texts == nil {
		f.texts = make(map[int64]string)
	}
	f.texts[userID] = string(text)
	return nil
}

func TestGradeAllArchivesAssembledText(t *testing.T) {
	scorer := &fakeScorer{scores: map[string]float64{"Ada": 90}}
	archiver := &fakeArchiver{}

	o := NewOrchestrator(&fakeExtractor{}, scorer, 1, zerolog.Nop())
	o.SetArchiver(archiver)
	o.GradeAll(context.Background(), testReq(), []models.Submission{submittedSub(1, "Ada", "my work")}, nil)

	if got := archiver.texts[1]; got != "my work" {
		t.Errorf("archived text = %q, want %q", got, "my work")
	}
}
