package grading

import (
	"context"
	"fmt"

	"github.com/profdeck/canvas-grader/internal/models"
	"github.com/rs/zerolog"
)

// GradePoster is the single write operation consumed from the host
// platform. Satisfied by the Canvas client.
type GradePoster interface {
	PostGrade(ctx context.Context, courseID, assignmentID, userID int64, score float64, comment string) error
}

// CommitProgressFunc fires before each post with 1-based index, total
// and the student's name.
type CommitProgressFunc func(i, total int, name string)

// GradeCommitter posts reviewed results back to the platform one by one.
// Write APIs are rate-sensitive, so posts stay sequential; a failure for
// one student never aborts the rest.
type GradeCommitter struct {
	poster   GradePoster
	cache    *SubmissionCache
	progress CommitProgressFunc
	logger   zerolog.Logger
}

func NewGradeCommitter(poster GradePoster, cache *SubmissionCache, progress CommitProgressFunc, logger zerolog.Logger) *GradeCommitter {
	return &GradeCommitter{
		poster:   poster,
		cache:    cache,
		progress: progress,
		logger:   logger,
	}
}

// Commit returns the count of successful posts and one formatted error
// string per failed student. Cache entries are mutated only for
// successes.
func (c *GradeCommitter) Commit(ctx context.Context, set *models.PendingGradeSet) (int, []string) {
	courseID := set.Requirement.CourseID
	assignmentID := set.Requirement.AssignmentID

	ok := 0
	var errs []string

	for i, result := range set.Results {
		if c.progress != nil {
			c.progress(i+1, len(set.Results), result.StudentName)
		}

		// A result whose oracle call failed carries no meaningful
		// score; never write it.
		if result.Error != "" {
			errs = append(errs, fmt.Sprintf("%s: skipped (scoring failed: %s)", result.StudentName, result.Error))
			continue
		}

		if err := c.poster.PostGrade(ctx, courseID, assignmentID, result.UserID, result.Score, result.Comments); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", result.StudentName, err))
			continue
		}

		ok++
		if c.cache != nil {
			c.cache.MarkGraded(courseID, assignmentID, result.UserID, result.Score)
		}
	}

	c.logger.Info().
		Str("run_id", set.RunID).
		Int("posted", ok).
		Int("failed", len(errs)).
		Msg("Grade commit finished")
	return ok, errs
}
