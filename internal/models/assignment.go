package models

import "time"

type AssignmentType string

const (
	AssignmentTest    AssignmentType = "test"
	AssignmentEssay   AssignmentType = "essay"
	AssignmentProject AssignmentType = "project"
	AssignmentLab     AssignmentType = "lab"
)

func (t AssignmentType) Valid() bool {
	switch t {
	case AssignmentTest, AssignmentEssay, AssignmentProject, AssignmentLab:
		return true
	default:
		return false
	}
}

type Assignment struct {
	ID                string         `json:"id" db:"id"`
	CourseID          string         `json:"course_id" db:"course_id"`
	Title             string         `json:"title" db:"title"`
	Description       string         `json:"description" db:"description"`
	Type              AssignmentType `json:"type" db:"type"`
	MaxScore          float64        `json:"max_score" db:"max_score"`
	Weight            float64        `json:"weight" db:"weight"`
	DueDate           time.Time      `json:"due_date" db:"due_date"`
	PublishedAt       *time.Time     `json:"published_at,omitempty" db:"published_at"`
	AllowResubmission bool           `json:"allow_resubmission" db:"allow_resubmission"`
	MaxResubmissions  int            `json:"max_resubmissions" db:"max_resubmissions"`
	Rubric            Rubric         `json:"rubric,omitempty" db:"rubric"`
	CreatedBy         string         `json:"created_by" db:"created_by"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}

// IsPublished reports whether students may see the assignment at the given moment.
func (a *Assignment) IsPublished(now time.Time) bool {
	return a.PublishedAt != nil && !a.PublishedAt.After(now)
}

// IsLate сравнивает момент сдачи со сроком; равенство сроку опозданием не считается.
func (a *Assignment) IsLate(submittedAt time.Time) bool {
	return submittedAt.After(a.DueDate)
}

// NextVersion returns the version number for a new submission given the
// latest existing version (0 when there is none), or ok=false when the
// resubmission policy forbids another attempt.
func (a *Assignment) NextVersion(latest int) (int, bool) {
	if latest == 0 {
		return 1, true
	}
	if !a.AllowResubmission || latest >= a.MaxResubmissions {
		return 0, false
	}
	return latest + 1, true
}

type AssignmentWithStats struct {
	Assignment
	CourseTeacherID  string `json:"-" db:"teacher_id"`
	CourseArchived   bool   `json:"-" db:"is_archived"`
	SubmissionsCount int    `json:"submissions_count" db:"submissions_count"`
	GradedCount      int    `json:"graded_count" db:"graded_count"`
}

type AssignmentFilter struct {
	CourseID string
	// Только опубликованные к моменту PublishedBefore
	PublishedOnly   bool
	PublishedBefore time.Time
	// Ограничения видимости по роли
	EnrolledStudentID string
	TeacherID         string
	SortBy            string
	SortOrder         string
	Skip              int
	Limit             int
}
