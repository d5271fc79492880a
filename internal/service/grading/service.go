package grading

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/profdeck/canvas-grader/internal/models"
	"github.com/profdeck/canvas-grader/internal/repository"
	"github.com/profdeck/canvas-grader/internal/service/canvas"
	"github.com/profdeck/canvas-grader/internal/service/notify"
	"github.com/rs/zerolog"
)

var ErrRunInProgress = errors.New("a grading run is already in progress")

// Service ties the run lifecycle together: fetch requirement and
// submissions, fan out the orchestrator, park the output in the review
// session, and commit on confirmation.
type Service struct {
	client    canvas.Client
	orch      *Orchestrator
	session   *ReviewSession
	committer *GradeCommitter
	cache     *SubmissionCache
	gradeLog  repository.GradeLogRepository
	notifier  *notify.Notifier
	logger    zerolog.Logger

	mu      sync.Mutex
	running bool
}

func NewService(
	client canvas.Client,
	orch *Orchestrator,
	session *ReviewSession,
	committer *GradeCommitter,
	cache *SubmissionCache,
	gradeLog repository.GradeLogRepository,
	notifier *notify.Notifier,
	logger zerolog.Logger,
) *Service {
	return &Service{
		client:    client,
		orch:      orch,
		session:   session,
		committer: committer,
		cache:     cache,
		gradeLog:  gradeLog,
		notifier:  notifier,
		logger:    logger,
	}
}

// StartRun fetches the requirement and submission list (the only two
// failures that abort a run), then grades in the background. The review
// session receives the result set when the run completes.
func (s *Service) StartRun(ctx context.Context, courseID, assignmentID int64) (*models.StartRunResponse, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrRunInProgress
	}
	if s.session.State() != StateIdle {
		s.mu.Unlock()
		return nil, ErrAlreadyActive
	}
	s.running = true
	s.mu.Unlock()

	req, err := s.client.GetRequirement(ctx, courseID, assignmentID)
	if err != nil {
		s.finishRun()
		return nil, err
	}

	subs, err := s.client.ListSubmissions(ctx, courseID, assignmentID)
	if err != nil {
		s.finishRun()
		return nil, err
	}
	s.cache.Put(courseID, assignmentID, subs)

	eligible, skipped := filterEligible(subs)

	// No mid-run cancellation: dispatched work runs to completion even
	// if the originating request goes away.
	go func() {
		defer s.finishRun()

		set := s.orch.GradeAll(context.Background(), req, subs, func(completed, total int, line string) {
			s.logger.Info().Int("completed", completed).Int("total", total).Msg(line)
		})

		if err := s.session.Begin(set); err != nil {
			s.logger.Error().Err(err).Str("run_id", set.RunID).Msg("Failed to open review session")
		}
	}()

	return &models.StartRunResponse{
		Eligible: len(eligible),
		Skipped:  skipped,
	}, nil
}

func (s *Service) finishRun() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Service) Progress() *models.RunProgressResponse {
	runID, completed, total, students := s.orch.Progress()

	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	// A run exists once the orchestrator has minted an ID for it; before
	// that, 0 == 0 must not read as a completed run.
	return &models.RunProgressResponse{
		RunID:     runID,
		Completed: completed,
		Total:     total,
		Done:      runID != "" && !running && completed == total,
		Students:  students,
	}
}

func (s *Service) ReviewTable() (*models.ReviewTableResponse, error) {
	return s.session.Table()
}

func (s *Service) EditScore(index int, input string) error {
	return s.session.EditScore(index, input)
}

// Commit confirms the review session, then records the run to history
// and announces it. Recording and announcing are best effort.
func (s *Service) Commit(ctx context.Context) (*models.CommitResponse, error) {
	set, err := s.session.Snapshot()
	if err != nil {
		return nil, err
	}

	posted, errs, err := s.session.Confirm(ctx, s.committer)
	if err != nil {
		return nil, err
	}

	if s.gradeLog != nil {
		run := &models.GradeRun{
			ID:             set.RunID,
			CourseID:       set.Requirement.CourseID,
			AssignmentID:   set.Requirement.AssignmentID,
			AssignmentName: set.Requirement.Name,
			PointsPossible: set.Requirement.PointsPossible,
			Posted:         posted,
			Failed:         len(errs),
			Skipped:        set.Skipped,
			CreatedAt:      time.Now().UTC(),
		}
		results := make([]models.GradeRunResult, 0, len(set.Results))
		for _, r := range set.Results {
			results = append(results, models.GradeRunResult{
				RunID:       set.RunID,
				UserID:      r.UserID,
				StudentName: r.StudentName,
				Score:       r.Score,
				LetterGrade: r.LetterGrade,
				Comments:    r.Comments,
				Error:       r.Error,
			})
		}
		if err := s.gradeLog.RecordRun(ctx, run, results); err != nil {
			s.logger.Error().Err(err).Str("run_id", set.RunID).Msg("Failed to record grade run")
		}
	}

	if s.notifier != nil {
		s.notifier.NotifyGradesCommitted(ctx, models.GradesCommittedEvent{
			RunID:        set.RunID,
			CourseID:     set.Requirement.CourseID,
			AssignmentID: set.Requirement.AssignmentID,
			Posted:       posted,
			Failed:       len(errs),
		})
	}

	if errs == nil {
		errs = []string{}
	}
	return &models.CommitResponse{Posted: posted, Errors: errs}, nil
}

func (s *Service) Cancel() {
	s.session.Cancel()
}

// ListSubmissions fetches the live submission list, refreshes the cache
// and feeds the notifier's new-submission check.
func (s *Service) ListSubmissions(ctx context.Context, courseID, assignmentID int64, courseName, assignmentName string) ([]models.Submission, error) {
	subs, err := s.client.ListSubmissions(ctx, courseID, assignmentID)
	if err != nil {
		// Fall back to the cache so a transient platform error does
		// not blank the view.
		if cached, ok := s.cache.Get(courseID, assignmentID); ok {
			s.logger.Warn().Err(err).Msg("Submission fetch failed, serving cached list")
			return cached, nil
		}
		return nil, err
	}
	s.cache.Put(courseID, assignmentID, subs)

	if s.notifier != nil {
		events := s.notifier.CheckNewSubmissions(subs, courseName, assignmentName)
		if len(events) > 0 {
			sent := s.notifier.NotifyNewSubmissions(ctx, events)
			s.logger.Info().Int("new", len(events)).Int("sent", sent).Msg("New submissions announced")
		}
	}

	return subs, nil
}

func (s *Service) RunHistory(ctx context.Context, limit int) ([]models.GradeRun, error) {
	if s.gradeLog == nil {
		return nil, fmt.Errorf("grade history is not configured")
	}
	return s.gradeLog.ListRuns(ctx, limit)
}

func (s *Service) RunDetail(ctx context.Context, runID string) (*models.GradeRun, []models.GradeRunResult, error) {
	if s.gradeLog == nil {
		return nil, nil, fmt.Errorf("grade history is not configured")
	}
	return s.gradeLog.GetRun(ctx, runID)
}
