package models

type NewSubmissionEvent struct {
	SubmissionID   int64  `json:"submission_id"`
	UserID         int64  `json:"user_id"`
	UserName       string `json:"user_name"`
	CourseName     string `json:"course_name"`
	AssignmentName string `json:"assignment_name"`
	SubmittedAt    string `json:"submitted_at"`
	Message        string `json:"message"`
	Timestamp      int64  `json:"timestamp"`
}

type GradesCommittedEvent struct {
	RunID        string `json:"run_id"`
	CourseID     int64  `json:"course_id"`
	AssignmentID int64  `json:"assignment_id"`
	Posted       int    `json:"posted"`
	Failed       int    `json:"failed"`
	Timestamp    int64  `json:"timestamp"`
}
