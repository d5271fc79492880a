package models

import (
	"time"
)

type Submission struct {
	ID            int64               `json:"id"`
	UserID        int64               `json:"user_id"`
	UserName      string              `json:"user_name"`
	Body          string              `json:"body"`
	SubmittedAt   *time.Time          `json:"submitted_at,omitempty"`
	GradedAt      *time.Time          `json:"graded_at,omitempty"`
	Attempt       int                 `json:"attempt"`
	Resubmitted   bool                `json:"resubmitted"`
	WorkflowState string              `json:"workflow_state"`
	Score         *float64            `json:"score,omitempty"`
	Attachments   []AttachmentRef     `json:"attachments"`
	Comments      []SubmissionComment `json:"submission_comments"`
}

// AttachmentRef describes one uploaded file; the URL doubles as the
// download handle and is only dereferenced by the extractor.
type AttachmentRef struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
}

type SubmissionComment struct {
	Author string `json:"author"`
	Text   string `json:"text"`
	Date   string `json:"date"`
}

const (
	WorkflowUnsubmitted = "unsubmitted"
	WorkflowSubmitted   = "submitted"
	WorkflowGraded      = "graded"
)

// ExtractedContent is the outcome of running the extractor over one
// attachment or inline body. Text and Error are not mutually exclusive
// except for wholly unsupported formats.
type ExtractedContent struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Text        string `json:"text"`
	Error       string `json:"error,omitempty"`
}

// AlreadyGraded reports whether a submission is finalized and must be
// excluded from rework.
func (s *Submission) AlreadyGraded() bool {
	return s.WorkflowState == WorkflowGraded && s.Score != nil
}

// HasContent reports whether there is anything to grade: an inline body,
// at least one attachment, or a workflow state past unsubmitted.
func (s *Submission) HasContent() bool {
	if s.Body != "" || len(s.Attachments) > 0 {
		return true
	}
	return s.WorkflowState != "" && s.WorkflowState != WorkflowUnsubmitted
}
