package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action is the kind of mutation an audit entry records.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Entry is one immutable audit record. Entries are only ever inserted;
// nothing in the system updates or deletes them.
//
// Metadata holds the change payload: for created entries the full new state,
// for updated entries {"old": {...}, "new": {...}} restricted to the fields
// that actually changed, for deleted entries the full prior state.
type Entry struct {
	ID         uuid.UUID              `db:"id" json:"id"`
	EntityType string                 `db:"entity_type" json:"entity_type"`
	EntityID   uuid.UUID              `db:"entity_id" json:"entity_id"`
	UserID     *string                `db:"user_id" json:"user_id,omitempty"`
	Action     Action                 `db:"action" json:"action"`
	Metadata   map[string]interface{} `db:"metadata" json:"metadata"`
	IPAddress  string                 `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt  time.Time              `db:"created_at" json:"created_at"`
}

// Filter narrows an audit listing.
type Filter struct {
	EntityType string
	EntityID   *uuid.UUID
	Action     Action
}
