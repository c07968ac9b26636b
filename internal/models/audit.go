package models

import "time"

type AuditAction string

const (
	AuditCreate AuditAction = "CREATE"
	AuditUpdate AuditAction = "UPDATE"
	AuditDelete AuditAction = "DELETE"
	AuditLogin  AuditAction = "LOGIN"
	AuditLogout AuditAction = "LOGOUT"
)

// AuditEntry is an immutable record of a mutating action. It carries a
// denormalized copy of the acting user id and entity snapshots, so it
// survives deletion of what it describes. Never updated or deleted.
type AuditEntry struct {
	ID          string      `json:"id"`
	Timestamp   time.Time   `json:"timestamp"`
	UserID      int         `json:"userId"`
	Description string      `json:"description"`
	Action      AuditAction `json:"action"`
	Entity      string      `json:"entity,omitempty"`
	EntityID    string      `json:"entityId,omitempty"`
	Before      any         `json:"before,omitempty"`
	After       any         `json:"after,omitempty"`
}
