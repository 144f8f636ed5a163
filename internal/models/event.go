package models

type EventType string

const (
	EventSubmissionReceived  EventType = "submission.received"
	EventGradePosted         EventType = "grade.posted"
	EventAppealFiled         EventType = "appeal.filed"
	EventAppealResolved      EventType = "appeal.resolved"
	EventAssignmentPublished EventType = "assignment.published"
)

// Event is a best-effort notification about a completed write.
// Type doubles as the routing key.
type Event struct {
	Type      EventType         `json:"type"`
	EntityID  string            `json:"entity_id"`
	CourseID  string            `json:"course_id,omitempty"`
	ActorID   string            `json:"actor_id,omitempty"`
	Recipient string            `json:"recipient_id,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp int64             `json:"timestamp"`
}
