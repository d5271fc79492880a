package models

import (
	"fmt"
	"strings"
)

// Data Transfer Objects

type StartRunRequest struct {
	CourseID     int64 `json:"course_id"`
	AssignmentID int64 `json:"assignment_id"`
}

// StartRunResponse acknowledges an accepted run. The run ID surfaces
// through the progress endpoint once grading begins.
type StartRunResponse struct {
	Eligible int `json:"eligible"`
	Skipped  int `json:"skipped"`
}

type RunProgressResponse struct {
	RunID     string            `json:"run_id"`
	Completed int               `json:"completed"`
	Total     int               `json:"total"`
	Done      bool              `json:"done"`
	Students  map[string]string `json:"students"`
}

type EditScoreRequest struct {
	// Raw instructor input: empty keeps the current score, non-numeric
	// is ignored, a number is clamped to [0, points_possible].
	Score string `json:"score"`
}

type ReviewRow struct {
	Index       int     `json:"index"`
	StudentName string  `json:"student_name"`
	Score       float64 `json:"score"`
	Points      float64 `json:"points_possible"`
	LetterGrade string  `json:"letter_grade"`
	Comments    string  `json:"comments"`
	Error       string  `json:"error,omitempty"`
}

type ReviewTableResponse struct {
	RunID      string      `json:"run_id"`
	Assignment string      `json:"assignment"`
	Rows       []ReviewRow `json:"rows"`
	Average    float64     `json:"average"`
	Graded     int         `json:"graded"`
	Skipped    int         `json:"skipped"`
}

type CommitResponse struct {
	Posted int      `json:"posted"`
	Errors []string `json:"errors"`
}

type SubmissionPreview struct {
	Student     string `json:"student"`
	SubmittedAt string `json:"submitted_at"`
	Status      string `json:"status"`
	BodyPreview string `json:"body_preview"`
	Score       string `json:"score"`
}

const bodyPreviewChars = 200

// NewSubmissionPreview builds the compact one-row view of a submission
// shown in listings.
func NewSubmissionPreview(s Submission) SubmissionPreview {
	preview := SubmissionPreview{
		Student:     s.UserName,
		SubmittedAt: "never",
		Status:      s.WorkflowState,
		Score:       "ungraded",
	}

	if s.SubmittedAt != nil {
		preview.SubmittedAt = s.SubmittedAt.Format("2006-01-02 15:04")
	}
	if s.Resubmitted {
		preview.Status += " (resubmitted)"
	}
	if s.Score != nil {
		preview.Score = fmt.Sprintf("%g", *s.Score)
	}

	body := strings.TrimSpace(s.Body)
	if len(body) > bodyPreviewChars {
		body = body[:bodyPreviewChars] + "..."
	}
	preview.BodyPreview = body

	return preview
}
