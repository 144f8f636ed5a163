package models

import "time"

type Course struct {
	ID          string    `json:"id" db:"id"`
	Code        string    `json:"code" db:"code"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Semester    string    `json:"semester,omitempty" db:"semester"`
	Credits     float64   `json:"credits" db:"credits"`
	TeacherID   string    `json:"teacher_id" db:"teacher_id"`
	Capacity    int       `json:"capacity" db:"capacity"`
	IsArchived  bool      `json:"is_archived" db:"is_archived"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type CourseWithStats struct {
	Course
	TeacherName     string `json:"teacher_name" db:"teacher_name"`
	StudentCount    int    `json:"student_count" db:"student_count"`
	AssignmentCount int    `json:"assignment_count" db:"assignment_count"`
}

type CourseFilter struct {
	Search          string
	Semester        string
	IncludeArchived bool
	// Ограничения видимости, выставляются сервисом по роли
	TeacherID string
	StudentID string
	SortBy    string
	SortOrder string
	Skip      int
	Limit     int
}
