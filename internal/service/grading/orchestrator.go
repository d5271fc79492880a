package grading

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/profdeck/canvas-grader/internal/models"
	"github.com/profdeck/canvas-grader/internal/service/oracle"
	"github.com/profdeck/canvas-grader/internal/worker"
	"github.com/rs/zerolog"
)

// AttachmentExtractor is the piece of the content extractor the
// orchestrator needs. Satisfied by extract.Extractor.
type AttachmentExtractor interface {
	ExtractAttachment(ctx context.Context, att models.AttachmentRef) models.ExtractedContent
}

// ExtractArchiver keeps audit copies of assembled submission text.
// Optional; satisfied by the MinIO archive repository.
type ExtractArchiver interface {
	StoreExtract(ctx context.Context, runID string, userID int64, studentName string, text []byte) error
}

// Orchestrator fans one extract-then-score pipeline out per eligible
// submission across a bounded worker pool and re-projects the results
// into the original submission order.
type Orchestrator struct {
	extractor  AttachmentExtractor
	scorer     oracle.ScoreOracle
	archiver   ExtractArchiver
	maxWorkers int
	logger     zerolog.Logger

	mu    sync.Mutex
	runID string
	board *statusBoard
}

func NewOrchestrator(extractor AttachmentExtractor, scorer oracle.ScoreOracle, maxWorkers int, logger zerolog.Logger) *Orchestrator {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Orchestrator{
		extractor:  extractor,
		scorer:     scorer,
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

// SetArchiver enables best-effort archiving of assembled submission
// text.
func (o *Orchestrator) SetArchiver(a ExtractArchiver) {
	o.archiver = a
}

// GradeAll grades every eligible submission and returns results in the
// input submission order regardless of worker completion order. An empty
// eligible set is not an error.
func (o *Orchestrator) GradeAll(ctx context.Context, req *models.GradingRequirement, submissions []models.Submission, progress ProgressFunc) *models.PendingGradeSet {
	eligible, skipped := filterEligible(submissions)

	set := &models.PendingGradeSet{
		RunID:       uuid.New().String(),
		Requirement: *req,
		Skipped:     skipped,
	}

	o.logger.Info().
		Str("run_id", set.RunID).
		Str("assignment", req.Name).
		Int("eligible", len(eligible)).
		Int("skipped", skipped).
		Msg("Starting grading run")

	if len(eligible) == 0 {
		o.mu.Lock()
		o.runID = set.RunID
		o.board = nil
		o.mu.Unlock()
		return set
	}

	board := newStatusBoard(len(eligible), progress)
	for _, sub := range eligible {
		board.register(sub.UserID, sub.UserName)
	}
	o.mu.Lock()
	o.runID = set.RunID
	o.board = board
	o.mu.Unlock()

	poolSize := o.maxWorkers
	if len(eligible) < poolSize {
		poolSize = len(eligible)
	}
	pool := worker.NewPool(poolSize, o.logger)
	pool.Start()

	// Workers complete in arbitrary order; results land in a map keyed
	// by user ID and are re-projected below.
	var resultsMu sync.Mutex
	results := make(map[int64]models.GradeResult, len(eligible))

	for _, sub := range eligible {
		sub := sub
		pool.Submit(func() {
			board.start(sub.UserID)
			result := o.gradeOne(ctx, set.RunID, req, sub)

			resultsMu.Lock()
			results[sub.UserID] = result
			resultsMu.Unlock()

			board.finish(sub.UserID)
		})
	}
	pool.Stop()

	for _, sub := range eligible {
		set.Results = append(set.Results, results[sub.UserID])
	}

	o.logger.Info().
		Str("run_id", set.RunID).
		Int("graded", len(set.Results)).
		Msg("Grading run completed")
	return set
}

// Progress reports the live status of the current (or last) run.
func (o *Orchestrator) Progress() (runID string, completed, total int, students map[string]string) {
	o.mu.Lock()
	runID = o.runID
	board := o.board
	o.mu.Unlock()

	if board == nil {
		return runID, 0, 0, map[string]string{}
	}
	completed, total, students = board.snapshot()
	return runID, completed, total, students
}

// filterEligible applies the single eligibility rule: gradable content
// present, and not already finalized with a score.
func filterEligible(submissions []models.Submission) (eligible []models.Submission, skipped int) {
	for _, sub := range submissions {
		if sub.AlreadyGraded() {
			skipped++
			continue
		}
		if sub.HasContent() {
			eligible = append(eligible, sub)
		}
	}
	return eligible, skipped
}

func (o *Orchestrator) gradeOne(ctx context.Context, runID string, req *models.GradingRequirement, sub models.Submission) models.GradeResult {
	result := models.GradeResult{
		UserID:      sub.UserID,
		StudentName: sub.UserName,
	}

	// A leftover attachment on an unsubmitted entry is not work to
	// grade; short-circuit without an oracle call.
	if sub.WorkflowState == "" || sub.WorkflowState == models.WorkflowUnsubmitted {
		result.Score = 0
		result.LetterGrade = models.ScoreToLetter(0, req.PointsPossible)
		result.Comments = "No submission"
		return result
	}

	text := o.assembleText(ctx, sub)

	if o.archiver != nil && text != "" {
		if err := o.archiver.StoreExtract(ctx, runID, sub.UserID, sub.UserName, []byte(text)); err != nil {
			o.logger.Warn().Err(err).Str("student", sub.UserName).Msg("Failed to archive extract")
		}
	}

	outcome := o.scorer.ScoreSubmission(ctx, req, sub.UserName, text)
	result.Score = outcome.Score
	result.LetterGrade = outcome.LetterGrade
	result.Comments = outcome.Comments
	result.Error = outcome.Err

	if result.Error != "" {
		o.logger.Warn().
			Str("student", sub.UserName).
			Str("error", result.Error).
			Msg("Submission scoring failed")
	}
	return result
}

// assembleText builds the oracle input: inline body first, then each
// attachment's extracted text under a filename header.
func (o *Orchestrator) assembleText(ctx context.Context, sub models.Submission) string {
	var parts []string
	if body := strings.TrimSpace(sub.Body); body != "" {
		parts = append(parts, body)
	}

	for _, att := range sub.Attachments {
		content := o.extractor.ExtractAttachment(ctx, att)
		if content.Error != "" {
			parts = append(parts, fmt.Sprintf("[Attachment %s: %s]", att.Filename, content.Error))
			continue
		}
		if content.Text != "" {
			parts = append(parts, fmt.Sprintf("── Attachment: %s ──\n%s", att.Filename, content.Text))
		}
	}

	return strings.Join(parts, "\n\n")
}
