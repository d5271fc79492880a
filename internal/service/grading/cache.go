package grading

import (
	"sync"

	"github.com/profdeck/canvas-grader/internal/models"
)

type cacheKey struct {
	courseID     int64
	assignmentID int64
}

// SubmissionCache keeps the last-fetched submission list per assignment
// so UI refreshes after a commit reflect the write without a re-fetch.
type SubmissionCache struct {
	mu      sync.Mutex
	entries map[cacheKey][]models.Submission
}

func NewSubmissionCache() *SubmissionCache {
	return &SubmissionCache{
		entries: make(map[cacheKey][]models.Submission),
	}
}

func (c *SubmissionCache) Put(courseID, assignmentID int64, subs []models.Submission) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{courseID, assignmentID}] = subs
}

func (c *SubmissionCache) Get(courseID, assignmentID int64) ([]models.Submission, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	subs, ok := c.entries[cacheKey{courseID, assignmentID}]
	return subs, ok
}

// MarkGraded updates one cached submission in place after a successful
// post: new score, workflow state graded.
func (c *SubmissionCache) MarkGraded(courseID, assignmentID, userID int64, score float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	subs := c.entries[cacheKey{courseID, assignmentID}]
	for i := range subs {
		if subs[i].UserID == userID {
			s := score
			subs[i].Score = &s
			subs[i].WorkflowState = models.WorkflowGraded
			return
		}
	}
}
