package models

import "time"

type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionLate      SubmissionStatus = "late"
	SubmissionGraded    SubmissionStatus = "graded"
	SubmissionReturned  SubmissionStatus = "returned"
)

func (s SubmissionStatus) String() string {
	return string(s)
}

// InitialSubmissionStatus is the status a submission receives when it is stored.
func InitialSubmissionStatus(isLate bool) SubmissionStatus {
	if isLate {
		return SubmissionLate
	}
	return SubmissionSubmitted
}

// CanTransitionTo разрешает только submitted|late -> graded -> returned.
func (s SubmissionStatus) CanTransitionTo(next SubmissionStatus) bool {
	switch s {
	case SubmissionSubmitted, SubmissionLate:
		return next == SubmissionGraded
	case SubmissionGraded:
		return next == SubmissionReturned
	case SubmissionReturned:
		return false
	default:
		return false
	}
}

type Submission struct {
	ID           string           `json:"id" db:"id"`
	AssignmentID string           `json:"assignment_id" db:"assignment_id"`
	StudentID    string           `json:"student_id" db:"student_id"`
	FilePath     string           `json:"file_path" db:"file_path"`
	FileName     string           `json:"file_name" db:"file_name"`
	FileSize     int64            `json:"file_size" db:"file_size"`
	MimeType     string           `json:"mime_type" db:"mime_type"`
	Checksum     string           `json:"checksum" db:"checksum"`
	Comment      string           `json:"comment,omitempty" db:"comment"`
	Version      int              `json:"version" db:"version"`
	IsLate       bool             `json:"is_late" db:"is_late"`
	Status       SubmissionStatus `json:"status" db:"status"`
	SubmittedAt  time.Time        `json:"submitted_at" db:"submitted_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

type SubmissionWithDetails struct {
	Submission
	StudentName     string `json:"student_name" db:"student_name"`
	AssignmentTitle string `json:"assignment_title" db:"assignment_title"`
	CourseID        string `json:"course_id" db:"course_id"`
	TeacherID       string `json:"-" db:"teacher_id"`
}

type SubmissionFilter struct {
	AssignmentID string
	// Студент видит только свои работы
	StudentID string
	Skip      int
	Limit     int
}
