package models

import "time"

type AppealStatus string

const (
	AppealPending  AppealStatus = "pending"
	AppealApproved AppealStatus = "approved"
	AppealRejected AppealStatus = "rejected"
)

// IsResolution reports whether the status may be used to close an appeal.
func (s AppealStatus) IsResolution() bool {
	return s == AppealApproved || s == AppealRejected
}

type Appeal struct {
	ID         string       `json:"id" db:"id"`
	GradeID    string       `json:"grade_id" db:"grade_id"`
	StudentID  string       `json:"student_id" db:"student_id"`
	Reason     string       `json:"reason" db:"reason"`
	Status     AppealStatus `json:"status" db:"status"`
	Response   string       `json:"response,omitempty" db:"response"`
	ResolvedBy *string      `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}
