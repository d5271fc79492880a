// Package notify watches for new submissions and announces grading
// events on the message broker.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/profdeck/canvas-grader/internal/models"
	"github.com/rs/zerolog"
)

type Notifier struct {
	publisher EventPublisher
	logger    zerolog.Logger

	mu   sync.Mutex
	seen map[int64]struct{}
}

func NewNotifier(publisher EventPublisher, logger zerolog.Logger) *Notifier {
	return &Notifier{
		publisher: publisher,
		logger:    logger,
		seen:      make(map[int64]struct{}),
	}
}

// CheckNewSubmissions diffs a submission list against the IDs already
// seen, skipping unsubmitted entries, and marks the new ones seen.
func (n *Notifier) CheckNewSubmissions(subs []models.Submission, courseName, assignmentName string) []models.NewSubmissionEvent {
	n.mu.Lock()
	defer n.mu.Unlock()

	var events []models.NewSubmissionEvent
	for _, sub := range subs {
		if sub.WorkflowState == models.WorkflowUnsubmitted || sub.WorkflowState == "" {
			continue
		}
		if _, ok := n.seen[sub.ID]; ok {
			continue
		}
		n.seen[sub.ID] = struct{}{}

		submittedAt := ""
		if sub.SubmittedAt != nil {
			submittedAt = sub.SubmittedAt.Format(time.RFC3339)
		}
		event := models.NewSubmissionEvent{
			SubmissionID:   sub.ID,
			UserID:         sub.UserID,
			UserName:       sub.UserName,
			CourseName:     courseName,
			AssignmentName: assignmentName,
			SubmittedAt:    submittedAt,
			Timestamp:      time.Now().Unix(),
		}
		event.Message = FormatMessage(event)
		events = append(events, event)
	}

	return events
}

func FormatMessage(event models.NewSubmissionEvent) string {
	return fmt.Sprintf("New submission: %s submitted '%s' in %s at %s",
		event.UserName, event.AssignmentName, event.CourseName, event.SubmittedAt)
}

// NotifyNewSubmissions publishes one event per new submission. Delivery
// is best effort; a broker failure is logged, not returned.
func (n *Notifier) NotifyNewSubmissions(ctx context.Context, events []models.NewSubmissionEvent) int {
	if n.publisher == nil {
		return 0
	}

	sent := 0
	for _, event := range events {
		if err := n.publisher.Publish(ctx, event); err != nil {
			n.logger.Error().Err(err).Int64("submission_id", event.SubmissionID).Msg("Failed to publish submission event")
			continue
		}
		sent++
	}
	return sent
}

// NotifyGradesCommitted announces a finished commit.
func (n *Notifier) NotifyGradesCommitted(ctx context.Context, event models.GradesCommittedEvent) {
	if n.publisher == nil {
		return
	}
	event.Timestamp = time.Now().Unix()
	if err := n.publisher.Publish(ctx, event); err != nil {
		n.logger.Error().Err(err).Str("run_id", event.RunID).Msg("Failed to publish commit event")
	}
}
