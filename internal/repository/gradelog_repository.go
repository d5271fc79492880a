package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/profdeck/canvas-grader/internal/models"
	"github.com/rs/zerolog"
)

// GradeLogRepository persists committed grading runs for later review.
type GradeLogRepository interface {
	RecordRun(ctx context.Context, run *models.GradeRun, results []models.GradeRunResult) error
	GetRun(ctx context.Context, runID string) (*models.GradeRun, []models.GradeRunResult, error)
	ListRuns(ctx context.Context, limit int) ([]models.GradeRun, error)
	Ping(ctx context.Context) error
}

type gradeLogRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewGradeLogRepository(db *sql.DB, logger zerolog.Logger) GradeLogRepository {
	return &gradeLogRepository{
		db:     db,
		logger: logger,
	}
}

func (r *gradeLogRepository) RecordRun(ctx context.Context, run *models.GradeRun, results []models.GradeRunResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO grade_runs (
			id, course_id, assignment_id, assignment_name, points_possible,
			posted, failed, skipped, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.ExecContext(ctx, query,
		run.ID,
		run.CourseID,
		run.AssignmentID,
		run.AssignmentName,
		run.PointsPossible,
		run.Posted,
		run.Failed,
		run.Skipped,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert grade run: %w", err)
	}

	resultQuery := `
		INSERT INTO grade_run_results (
			run_id, user_id, student_name, score, letter_grade, comments, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, res := range results {
		_, err = tx.ExecContext(ctx, resultQuery,
			run.ID,
			res.UserID,
			res.StudentName,
			res.Score,
			res.LetterGrade,
			res.Comments,
			res.Error,
		)
		if err != nil {
			return fmt.Errorf("failed to insert run result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info().
		Str("run_id", run.ID).
		Int("results", len(results)).
		Msg("Grade run recorded")
	return nil
}

func (r *gradeLogRepository) GetRun(ctx context.Context, runID string) (*models.GradeRun, []models.GradeRunResult, error) {
	query := `
		SELECT id, course_id, assignment_id, assignment_name, points_possible,
		       posted, failed, skipped, created_at
		FROM grade_runs
		WHERE id = $1
	`

	run := &models.GradeRun{}
	err := r.db.QueryRowContext(ctx, query, runID).Scan(
		&run.ID,
		&run.CourseID,
		&run.AssignmentID,
		&run.AssignmentName,
		&run.PointsPossible,
		&run.Posted,
		&run.Failed,
		&run.Skipped,
		&run.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("grade run %s not found", runID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch grade run: %w", err)
	}

	resultQuery := `
		SELECT run_id, user_id, student_name, score, letter_grade, comments, error
		FROM grade_run_results
		WHERE run_id = $1
		ORDER BY student_name
	`
	rows, err := r.db.QueryContext(ctx, resultQuery, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch run results: %w", err)
	}
	defer rows.Close()

	var results []models.GradeRunResult
	for rows.Next() {
		var res models.GradeRunResult
		if err := rows.Scan(
			&res.RunID,
			&res.UserID,
			&res.StudentName,
			&res.Score,
			&res.LetterGrade,
			&res.Comments,
			&res.Error,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan run result: %w", err)
		}
		results = append(results, res)
	}

	return run, results, rows.Err()
}

func (r *gradeLogRepository) ListRuns(ctx context.Context, limit int) ([]models.GradeRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, course_id, assignment_id, assignment_name, points_possible,
		       posted, failed, skipped, created_at
		FROM grade_runs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list grade runs: %w", err)
	}
	defer rows.Close()

	var runs []models.GradeRun
	for rows.Next() {
		var run models.GradeRun
		if err := rows.Scan(
			&run.ID,
			&run.CourseID,
			&run.AssignmentID,
			&run.AssignmentName,
			&run.PointsPossible,
			&run.Posted,
			&run.Failed,
			&run.Skipped,
			&run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan grade run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (r *gradeLogRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.db.PingContext(ctx)
}
