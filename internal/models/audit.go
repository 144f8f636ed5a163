package models

import (
	"encoding/json"
	"time"
)

const (
	AuditCreate  = "create"
	AuditUpdate  = "update"
	AuditDelete  = "delete"
	AuditArchive = "archive"
	AuditEnroll  = "enroll"
	AuditDrop    = "drop"
	AuditPublish = "publish"
	AuditResolve = "resolve"
	AuditReturn  = "return"
)

type AuditEntry struct {
	ID         int64           `json:"id" db:"id"`
	UserID     string          `json:"user_id" db:"user_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   string          `json:"entity_id" db:"entity_id"`
	OldValues  json.RawMessage `json:"old_values,omitempty" db:"old_values"`
	NewValues  json.RawMessage `json:"new_values,omitempty" db:"new_values"`
	IPAddress  string          `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  string          `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

type AuditFilter struct {
	EntityType string
	EntityID   string
	UserID     string
	Skip       int
	Limit      int
}
