package canvas

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/profdeck/canvas-grader/internal/models"
)

type submissionJSON struct {
	ID            int64    `json:"id"`
	UserID        int64    `json:"user_id"`
	Body          string   `json:"body"`
	SubmittedAt   *string  `json:"submitted_at"`
	GradedAt      *string  `json:"graded_at"`
	Attempt       *int     `json:"attempt"`
	WorkflowState string   `json:"workflow_state"`
	Score         *float64 `json:"score"`
	User          *struct {
		Name string `json:"name"`
	} `json:"user"`
	Attachments []struct {
		Filename    string `json:"filename"`
		ContentType string `json:"content-type"`
		Size        int64  `json:"size"`
		URL         string `json:"url"`
	} `json:"attachments"`
	SubmissionComments []struct {
		AuthorName string `json:"author_name"`
		Comment    string `json:"comment"`
		CreatedAt  string `json:"created_at"`
	} `json:"submission_comments"`
}

// ListSubmissions fetches all submissions for an assignment, including
// user names and grader comments.
func (c *client) ListSubmissions(ctx context.Context, courseID, assignmentID int64) ([]models.Submission, error) {
	var raw []submissionJSON
	path := fmt.Sprintf(
		"/api/v1/courses/%d/assignments/%d/submissions?include[]=user&include[]=submission_comments&per_page=100",
		courseID, assignmentID,
	)
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("failed to fetch submissions for assignment %d in course %d: %w",
			assignmentID, courseID, err)
	}

	subs := make([]models.Submission, 0, len(raw))
	for _, s := range raw {
		sub := models.Submission{
			ID:            s.ID,
			UserID:        s.UserID,
			UserName:      "Unknown",
			Body:          s.Body,
			WorkflowState: s.WorkflowState,
			Score:         s.Score,
			Attempt:       1,
		}
		if s.WorkflowState == "" {
			sub.WorkflowState = models.WorkflowUnsubmitted
		}
		if s.User != nil && s.User.Name != "" {
			sub.UserName = s.User.Name
		}
		if s.Attempt != nil && *s.Attempt > 0 {
			sub.Attempt = *s.Attempt
		}
		sub.SubmittedAt = parseTime(s.SubmittedAt)
		sub.GradedAt = parseTime(s.GradedAt)
		// Resubmitted means submitted again after being graded.
		if sub.SubmittedAt != nil && sub.GradedAt != nil {
			sub.Resubmitted = sub.SubmittedAt.After(*sub.GradedAt)
		}

		for _, a := range s.Attachments {
			filename := a.Filename
			if decoded, err := url.QueryUnescape(filename); err == nil {
				filename = decoded
			}
			if filename == "" {
				filename = "unknown"
			}
			sub.Attachments = append(sub.Attachments, models.AttachmentRef{
				Filename:    filename,
				ContentType: a.ContentType,
				Size:        a.Size,
				URL:         a.URL,
			})
		}

		for _, cm := range s.SubmissionComments {
			if cm.Comment == "" {
				continue
			}
			date := cm.CreatedAt
			if len(date) > 10 {
				date = date[:10]
			}
			author := cm.AuthorName
			if author == "" {
				author = "?"
			}
			sub.Comments = append(sub.Comments, models.SubmissionComment{
				Author: author,
				Text:   cm.Comment,
				Date:   date,
			})
		}

		subs = append(subs, sub)
	}

	return subs, nil
}

func parseTime(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	return &t
}

// DownloadAttachment fetches the attachment bytes through its download
// handle. The caller enforces the size guard before invoking this.
func (c *client) DownloadAttachment(ctx context.Context, att models.AttachmentRef) ([]byte, error) {
	if att.URL == "" {
		return nil, fmt.Errorf("no download URL available")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, att.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	c.logger.Debug().Str("filename", att.Filename).Int("bytes", len(data)).Msg("Attachment downloaded")
	return data, nil
}

// PostGrade writes one student's grade (and optional comment) back to the
// assignment.
func (c *client) PostGrade(ctx context.Context, courseID, assignmentID, userID int64, score float64, comment string) error {
	path := fmt.Sprintf("/api/v1/courses/%d/assignments/%d/submissions/%d", courseID, assignmentID, userID)

	payload := map[string]interface{}{
		"submission": map[string]interface{}{
			"posted_grade": strconv.FormatFloat(score, 'f', -1, 64),
		},
	}
	if comment != "" {
		payload["comment"] = map[string]interface{}{
			"text_comment": comment,
		}
	}

	if err := c.sendJSON(ctx, "PUT", path, payload, nil); err != nil {
		return err
	}

	c.logger.Info().
		Int64("user_id", userID).
		Float64("score", score).
		Msg("Grade posted")
	return nil
}
