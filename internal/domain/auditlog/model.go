// Package auditlog is the append-only compliance trail. Entries record who
// did what to which entity; they are inserted inside the same transaction as
// the change they describe and are never updated or deleted.
package auditlog

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreate    = "create"
	ActionStructure = "structure"
	ActionEdit      = "edit"
	ActionDelete    = "delete"
	ActionApprove   = "approve"
)

var validActions = map[string]bool{
	ActionCreate:    true,
	ActionStructure: true,
	ActionEdit:      true,
	ActionDelete:    true,
	ActionApprove:   true,
}

func IsValidAction(a string) bool { return validActions[a] }

type AuditLog struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	UserID     uuid.UUID  `db:"user_id" json:"user_id"`
	Action     string     `db:"action" json:"action"`
	EntityType string     `db:"entity_type" json:"entity_type"`
	EntityID   *uuid.UUID `db:"entity_id" json:"entity_id,omitempty"`
	Details    string     `db:"details" json:"details,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
