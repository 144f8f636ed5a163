package models

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
)

func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentActive, EnrollmentCompleted, EnrollmentDropped:
		return true
	default:
		return false
	}
}

type Enrollment struct {
	ID         string           `json:"id" db:"id"`
	CourseID   string           `json:"course_id" db:"course_id"`
	StudentID  string           `json:"student_id" db:"student_id"`
	Status     EnrollmentStatus `json:"status" db:"status"`
	EnrolledAt time.Time        `json:"enrolled_at" db:"enrolled_at"`
	UpdatedAt  time.Time        `json:"updated_at" db:"updated_at"`
}

type EnrollmentWithStudent struct {
	Enrollment
	StudentName  string `json:"student_name" db:"student_name"`
	StudentEmail string `json:"student_email" db:"student_email"`
	GroupName    string `json:"group,omitempty" db:"group_name"`
}
