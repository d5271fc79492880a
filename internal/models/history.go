package models

import "time"

// GradeRun is one committed grading run as persisted to the history
// store.
type GradeRun struct {
	ID             string    `json:"id" db:"id"`
	CourseID       int64     `json:"course_id" db:"course_id"`
	AssignmentID   int64     `json:"assignment_id" db:"assignment_id"`
	AssignmentName string    `json:"assignment_name" db:"assignment_name"`
	PointsPossible float64   `json:"points_possible" db:"points_possible"`
	Posted         int       `json:"posted" db:"posted"`
	Failed         int       `json:"failed" db:"failed"`
	Skipped        int       `json:"skipped" db:"skipped"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type GradeRunResult struct {
	RunID       string  `json:"run_id" db:"run_id"`
	UserID      int64   `json:"user_id" db:"user_id"`
	StudentName string  `json:"student_name" db:"student_name"`
	Score       float64 `json:"score" db:"score"`
	LetterGrade string  `json:"letter_grade" db:"letter_grade"`
	Comments    string  `json:"comments" db:"comments"`
	Error       string  `json:"error" db:"error"`
}
