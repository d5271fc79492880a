package grading

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/profdeck/canvas-grader/internal/models"
	"github.com/rs/zerolog"
)

type SessionState string

const (
	StateIdle          SessionState = "idle"
	StateReviewing     SessionState = "reviewing"
	StateEditingSelect SessionState = "editing-select"
	StateEditingScore  SessionState = "editing-score"
)

var (
	ErrNoPendingSet  = errors.New("no pending grade set to review")
	ErrAlreadyActive = errors.New("a pending grade set is already under review")
	ErrNotReviewing  = errors.New("session is not in the reviewing state")
	ErrEmptySet      = errors.New("pending grade set is empty")
)

// Committer posts one reviewed set to the host platform. Implemented by
// GradeCommitter; faked in tests.
type Committer interface {
	Commit(ctx context.Context, set *models.PendingGradeSet) (int, []string)
}

// ReviewSession holds one run's output as an editable working set until
// the instructor commits or cancels. A single session exists per
// application; all operations take its lock.
type ReviewSession struct {
	mu         sync.Mutex
	state      SessionState
	pending    *models.PendingGradeSet
	editCursor int
	logger     zerolog.Logger
}

func NewReviewSession(logger zerolog.Logger) *ReviewSession {
	return &ReviewSession{
		state:  StateIdle,
		logger: logger,
	}
}

func (s *ReviewSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Begin installs a completed run's result set and moves to reviewing.
func (s *ReviewSession) Begin(set *models.PendingGradeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return ErrAlreadyActive
	}
	if set == nil {
		return ErrNoPendingSet
	}

	s.pending = set
	s.state = StateReviewing
	s.logger.Info().Str("run_id", set.RunID).Int("results", len(set.Results)).Msg("Review session opened")
	return nil
}

// EditScore runs the full edit flow for one entry: select it (1-indexed),
// then apply the raw score input. Selecting 0 or an out-of-range index
// cancels back to reviewing with no change; empty input keeps the current
// score; non-numeric input is ignored; a number is clamped and the letter
// grade recomputed. The session ends back in reviewing either way.
func (s *ReviewSession) EditScore(index int, input string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReviewing {
		return ErrNotReviewing
	}
	if s.pending == nil {
		return ErrNoPendingSet
	}

	s.state = StateEditingSelect
	if index < 1 || index > len(s.pending.Results) {
		s.state = StateReviewing
		return nil
	}

	s.editCursor = index - 1
	s.state = StateEditingScore
	defer func() {
		s.editCursor = 0
		s.state = StateReviewing
	}()

	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	score, err := strconv.ParseFloat(input, 64)
	if err != nil {
		return nil
	}

	points := s.pending.Requirement.PointsPossible
	entry := &s.pending.Results[s.editCursor]
	entry.Score = models.ClampScore(score, points)
	entry.LetterGrade = models.ScoreToLetter(entry.Score, points)
	entry.Error = ""

	s.logger.Info().
		Str("student", entry.StudentName).
		Float64("score", entry.Score).
		Str("letter", entry.LetterGrade).
		Msg("Score edited")
	return nil
}

// Table renders the reviewing state: one row per student plus the
// aggregate average over meaningful scores.
func (s *ReviewSession) Table() (*models.ReviewTableResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIdle || s.pending == nil {
		return nil, ErrNoPendingSet
	}

	points := s.pending.Requirement.PointsPossible
	table := &models.ReviewTableResponse{
		RunID:      s.pending.RunID,
		Assignment: s.pending.Requirement.Name,
		Skipped:    s.pending.Skipped,
	}

	for i, r := range s.pending.Results {
		row := models.ReviewRow{
			Index:       i + 1,
			StudentName: r.StudentName,
			Score:       r.Score,
			Points:      points,
			LetterGrade: r.LetterGrade,
			Comments:    r.Comments,
			Error:       r.Error,
		}
		table.Rows = append(table.Rows, row)
	}

	avg, graded := s.pending.Average()
	table.Average = avg
	table.Graded = graded
	return table, nil
}

// Snapshot returns a copy of the pending set for recording alongside a
// commit. The copy stays valid after the session is cleared.
func (s *ReviewSession) Snapshot() (*models.PendingGradeSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReviewing {
		return nil, ErrNotReviewing
	}
	if s.pending == nil || len(s.pending.Results) == 0 {
		return nil, ErrEmptySet
	}

	copySet := &models.PendingGradeSet{
		RunID:       s.pending.RunID,
		Requirement: s.pending.Requirement,
		Skipped:     s.pending.Skipped,
		Results:     make([]models.GradeResult, len(s.pending.Results)),
	}
	copy(copySet.Results, s.pending.Results)
	return copySet, nil
}

// Confirm hands the set to the committer and clears the session. The
// pending set is destroyed whether or not individual posts failed;
// per-student failures come back in the error list.
func (s *ReviewSession) Confirm(ctx context.Context, committer Committer) (int, []string, error) {
	s.mu.Lock()
	if s.state != StateReviewing {
		s.mu.Unlock()
		return 0, nil, ErrNotReviewing
	}
	if s.pending == nil || len(s.pending.Results) == 0 {
		s.mu.Unlock()
		return 0, nil, ErrEmptySet
	}
	set := s.pending
	s.mu.Unlock()

	posted, errs := committer.Commit(ctx, set)

	s.mu.Lock()
	s.pending = nil
	s.state = StateIdle
	s.mu.Unlock()

	s.logger.Info().
		Str("run_id", set.RunID).
		Int("posted", posted).
		Int("failed", len(errs)).
		Msg("Review session committed")
	return posted, errs, nil
}

// Cancel discards the pending set unconditionally.
func (s *ReviewSession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		s.logger.Info().Str("run_id", s.pending.RunID).Msg("Review session cancelled, grades discarded")
	}
	s.pending = nil
	s.editCursor = 0
	s.state = StateIdle
}
