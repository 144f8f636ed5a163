package models

import "time"

type Grade struct {
	ID             string         `json:"id" db:"id"`
	SubmissionID   string         `json:"submission_id" db:"submission_id"`
	Score          float64        `json:"score" db:"score"`
	MaxScore       float64        `json:"max_score" db:"max_score"`
	CriteriaScores CriteriaScores `json:"criteria_scores,omitempty" db:"criteria_scores"`
	Comments       string         `json:"comments,omitempty" db:"comments"`
	GradedBy       string         `json:"graded_by" db:"graded_by"`
	GradedAt       time.Time      `json:"graded_at" db:"graded_at"`
	LastModified   time.Time      `json:"last_modified" db:"last_modified"`
}

// GradeWithContext carries the ownership data needed to authorize access to a grade.
type GradeWithContext struct {
	Grade
	StudentID    string `json:"student_id" db:"student_id"`
	AssignmentID string `json:"assignment_id" db:"assignment_id"`
	CourseID     string `json:"course_id" db:"course_id"`
	TeacherID    string `json:"-" db:"teacher_id"`
}
