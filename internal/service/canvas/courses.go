package canvas

import (
	"context"
	"fmt"

	"github.com/profdeck/canvas-grader/internal/models"
)

type courseJSON struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	CourseCode    string `json:"course_code"`
	TotalStudents *int   `json:"total_students"`
	Term          *struct {
		Name string `json:"name"`
	} `json:"term"`
}

// GetCourses lists courses where the token's user is enrolled as a
// teacher.
func (c *client) GetCourses(ctx context.Context) ([]models.Course, error) {
	var raw []courseJSON
	path := "/api/v1/courses?enrollment_type=teacher&include[]=term&include[]=total_students&per_page=100"
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("failed to fetch courses: %w", err)
	}

	courses := make([]models.Course, 0, len(raw))
	for _, cr := range raw {
		course := models.Course{
			ID:   cr.ID,
			Name: cr.Name,
			Code: cr.CourseCode,
			Term: "N/A",
		}
		if cr.Term != nil && cr.Term.Name != "" {
			course.Term = cr.Term.Name
		}
		if cr.TotalStudents != nil {
			course.TotalStudents = *cr.TotalStudents
		}
		courses = append(courses, course)
	}

	return courses, nil
}

type enrollmentJSON struct {
	User struct {
		ID           int64  `json:"id"`
		Name         string `json:"name"`
		SortableName string `json:"sortable_name"`
	} `json:"user"`
	Grades struct {
		CurrentScore *float64 `json:"current_score"`
		CurrentGrade string   `json:"current_grade"`
		FinalScore   *float64 `json:"final_score"`
		FinalGrade   string   `json:"final_grade"`
	} `json:"grades"`
}

// GetStudents lists student enrollments in a course with their current
// and final grades.
func (c *client) GetStudents(ctx context.Context, courseID int64) ([]models.StudentGrade, error) {
	var raw []enrollmentJSON
	path := fmt.Sprintf("/api/v1/courses/%d/enrollments?type[]=StudentEnrollment&include[]=grades&per_page=100", courseID)
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("failed to fetch students for course %d: %w", courseID, err)
	}

	students := make([]models.StudentGrade, 0, len(raw))
	for _, e := range raw {
		students = append(students, models.StudentGrade{
			UserID:       e.User.ID,
			Name:         e.User.Name,
			SortableName: e.User.SortableName,
			CurrentScore: e.Grades.CurrentScore,
			CurrentGrade: e.Grades.CurrentGrade,
			FinalScore:   e.Grades.FinalScore,
			FinalGrade:   e.Grades.FinalGrade,
		})
	}

	return students, nil
}
