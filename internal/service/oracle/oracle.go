// Package oracle wraps the external decision-making CLI behind narrow
// interfaces so the retry and timeout policy stays testable with fakes.
package oracle

import (
	"context"

	"github.com/profdeck/canvas-grader/internal/models"
)

// ScoreOracle judges one submission against an assignment's requirement.
// Implementations never return an error: every failure mode resolves to a
// result with a populated Err field.
type ScoreOracle interface {
	ScoreSubmission(ctx context.Context, req *models.GradingRequirement, studentName, submissionText string) ScoreOutcome
}

type ScoreOutcome struct {
	Score       float64
	LetterGrade string
	Comments    string
	Err         string
}

// VisionOracle extracts readable text from an image. Failures come back
// as bracketed placeholder strings, never as errors.
type VisionOracle interface {
	RecognizeImage(ctx context.Context, data []byte, suffix string) string
}
