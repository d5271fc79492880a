package models

type Course struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Code          string `json:"course_code"`
	Term          string `json:"term"`
	TotalStudents int    `json:"total_students"`
}

type StudentGrade struct {
	UserID        int64    `json:"user_id"`
	Name          string   `json:"name"`
	SortableName  string   `json:"sortable_name"`
	CurrentScore  *float64 `json:"current_score,omitempty"`
	CurrentGrade  string   `json:"current_grade,omitempty"`
	FinalScore    *float64 `json:"final_score,omitempty"`
	FinalGrade    string   `json:"final_grade,omitempty"`
}

type Assignment struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	PointsPossible    float64  `json:"points_possible"`
	DueAt             string   `json:"due_at,omitempty"`
	Description       string   `json:"description"`
	SubmissionTypes   []string `json:"submission_types"`
	Published         bool     `json:"published"`
	NeedsGradingCount int      `json:"needs_grading_count"`
}

// GradingRequirement is the assignment context handed to the scoring
// oracle. Description is plain text (markup stripped) and the rubric is
// optional. Fetched once per run and held immutable.
type GradingRequirement struct {
	CourseID       int64             `json:"course_id"`
	AssignmentID   int64             `json:"assignment_id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	PointsPossible float64           `json:"points_possible"`
	Rubric         []RubricCriterion `json:"rubric,omitempty"`
}

type RubricCriterion struct {
	Description string  `json:"description"`
	Points      float64 `json:"points"`
	Detail      string  `json:"long_description,omitempty"`
}
