package models

import "time"

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
	Group    string `json:"group"`
	Faculty  string `json:"faculty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type CreateCourseRequest struct {
	Code        string  `json:"code"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Semester    string  `json:"semester"`
	Credits     float64 `json:"credits"`
	Capacity    int     `json:"capacity"`
	// Только администратор может назначить другого преподавателя
	TeacherID string `json:"teacher_id"`
}

type UpdateCourseRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Semester    *string  `json:"semester"`
	Credits     *float64 `json:"credits"`
	Capacity    *int     `json:"capacity"`
	IsArchived  *bool    `json:"is_archived"`
}

type DeleteCourseResponse struct {
	ID       string `json:"id"`
	Archived bool   `json:"archived"`
	Deleted  bool   `json:"deleted"`
}

type CoursesResponse struct {
	Courses []CourseWithStats `json:"courses"`
	Total   int               `json:"total"`
	Skip    int               `json:"skip"`
	Limit   int               `json:"limit"`
}

type CreateAssignmentRequest struct {
	CourseID          string         `json:"course_id"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	Type              AssignmentType `json:"type"`
	MaxScore          float64        `json:"max_score"`
	Weight            *float64       `json:"weight"`
	DueDate           time.Time      `json:"due_date"`
	AllowResubmission bool           `json:"allow_resubmission"`
	MaxResubmissions  *int           `json:"max_resubmissions"`
	Rubric            Rubric         `json:"rubric"`
	Publish           bool           `json:"publish"`
}

type AssignmentsResponse struct {
	Assignments []AssignmentWithStats `json:"assignments"`
	Total       int                   `json:"total"`
	Skip        int                   `json:"skip"`
	Limit       int                   `json:"limit"`
}

type SubmitRequest struct {
	AssignmentID string
	Comment      string
	FileName     string
	Content      []byte
}

type SubmissionsResponse struct {
	Submissions []SubmissionWithDetails `json:"submissions"`
	Total       int                     `json:"total"`
	Skip        int                     `json:"skip"`
	Limit       int                     `json:"limit"`
}

type CreateGradeRequest struct {
	SubmissionID   string         `json:"submission_id"`
	Score          *float64       `json:"score"`
	CriteriaScores CriteriaScores `json:"criteria_scores"`
	Comments       string         `json:"comments"`
}

type UpdateGradeRequest struct {
	Score          *float64       `json:"score"`
	CriteriaScores CriteriaScores `json:"criteria_scores"`
	Comments       *string        `json:"comments"`
}

type CreateAppealRequest struct {
	Reason string `json:"reason"`
}

type ResolveAppealRequest struct {
	Status   AppealStatus `json:"status"`
	Response string       `json:"response"`
}

type AuditResponse struct {
	Entries []AuditEntry `json:"entries"`
	Total   int          `json:"total"`
	Skip    int          `json:"skip"`
	Limit   int          `json:"limit"`
}

type UsersResponse struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
	Skip  int    `json:"skip"`
	Limit int    `json:"limit"`
}

// MaxBatchEnrollSize ограничивает число адресов в одном запросе пакетной записи.
const MaxBatchEnrollSize = 500

type BatchEnrollFailure struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

type BatchEnrollResponse struct {
	Success []string             `json:"success"`
	Failed  []BatchEnrollFailure `json:"failed"`
}
