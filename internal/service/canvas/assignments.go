package canvas

import (
	"context"
	"fmt"

	"github.com/profdeck/canvas-grader/internal/models"
)

type assignmentJSON struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	PointsPossible    *float64 `json:"points_possible"`
	DueAt             string   `json:"due_at"`
	Description       string   `json:"description"`
	SubmissionTypes   []string `json:"submission_types"`
	Published         bool     `json:"published"`
	NeedsGradingCount int      `json:"needs_grading_count"`
	Rubric            []struct {
		Description     string  `json:"description"`
		Points          float64 `json:"points"`
		LongDescription string  `json:"long_description"`
	} `json:"rubric"`
}

func (a assignmentJSON) toModel() models.Assignment {
	out := models.Assignment{
		ID:                a.ID,
		Name:              a.Name,
		DueAt:             a.DueAt,
		Description:       a.Description,
		SubmissionTypes:   a.SubmissionTypes,
		Published:         a.Published,
		NeedsGradingCount: a.NeedsGradingCount,
	}
	if a.PointsPossible != nil {
		out.PointsPossible = *a.PointsPossible
	}
	return out
}

func (c *client) GetAssignments(ctx context.Context, courseID int64) ([]models.Assignment, error) {
	var raw []assignmentJSON
	path := fmt.Sprintf("/api/v1/courses/%d/assignments?per_page=100", courseID)
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("failed to fetch assignments for course %d: %w", courseID, err)
	}

	assignments := make([]models.Assignment, 0, len(raw))
	for _, a := range raw {
		assignments = append(assignments, a.toModel())
	}
	return assignments, nil
}

func (c *client) CreateAssignment(ctx context.Context, courseID int64, data map[string]interface{}) (*models.Assignment, error) {
	var raw assignmentJSON
	path := fmt.Sprintf("/api/v1/courses/%d/assignments", courseID)
	payload := map[string]interface{}{"assignment": data}
	if err := c.sendJSON(ctx, "POST", path, payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to create assignment in course %d: %w", courseID, err)
	}
	out := raw.toModel()
	return &out, nil
}

func (c *client) UpdateAssignment(ctx context.Context, courseID, assignmentID int64, data map[string]interface{}) (*models.Assignment, error) {
	var raw assignmentJSON
	path := fmt.Sprintf("/api/v1/courses/%d/assignments/%d", courseID, assignmentID)
	payload := map[string]interface{}{"assignment": data}
	if err := c.sendJSON(ctx, "PUT", path, payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to update assignment %d in course %d: %w", assignmentID, courseID, err)
	}
	out := raw.toModel()
	return &out, nil
}

// GetRequirement fetches the assignment details needed for a grading run:
// name, stripped description, points possible and the optional rubric.
func (c *client) GetRequirement(ctx context.Context, courseID, assignmentID int64) (*models.GradingRequirement, error) {
	var raw assignmentJSON
	path := fmt.Sprintf("/api/v1/courses/%d/assignments/%d", courseID, assignmentID)
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("failed to fetch assignment %d in course %d: %w", assignmentID, courseID, err)
	}

	req := &models.GradingRequirement{
		CourseID:       courseID,
		AssignmentID:   raw.ID,
		Name:           raw.Name,
		Description:    StripHTML(raw.Description),
		PointsPossible: 100,
	}
	if raw.Name == "" {
		req.Name = "Untitled Assignment"
	}
	if raw.PointsPossible != nil && *raw.PointsPossible > 0 {
		req.PointsPossible = *raw.PointsPossible
	}

	for _, cr := range raw.Rubric {
		req.Rubric = append(req.Rubric, models.RubricCriterion{
			Description: cr.Description,
			Points:      cr.Points,
			Detail:      StripHTML(cr.LongDescription),
		})
	}

	return req, nil
}
