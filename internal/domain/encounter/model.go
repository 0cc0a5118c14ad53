package encounter

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("encounter not found")

type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Valid encounter statuses.
var validStatuses = map[string]bool{
	"scheduled":   true,
	"in_progress": true,
	"completed":   true,
	"cancelled":   true,
}

// Valid treatment statuses.
var validTreatmentStatuses = map[string]bool{
	"planned":     true,
	"in_progress": true,
	"completed":   true,
}

// Valid tooth surfaces.
var validSurfaces = map[string]bool{
	"mesial":   true,
	"distal":   true,
	"buccal":   true,
	"lingual":  true,
	"occlusal": true,
	"incisal":  true,
}

// Encounter is one visit. Treatments hang off it and are reconciled as a
// full set on every update.
type Encounter struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	ProviderID *uuid.UUID `db:"provider_id" json:"provider_id,omitempty"`
	OccurredAt time.Time  `db:"occurred_at" json:"occurred_at"`
	Status     string     `db:"status" json:"status"`
	Notes      string     `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt  *time.Time `db:"deleted_at" json:"-"`

	Treatments []Treatment `db:"-" json:"treatments"`
}

// Treatment is one billable procedure line. An id on an incoming line means
// update-in-place; no id means insert; a stored line whose id is missing
// from the submitted set is deleted.
type Treatment struct {
	ID          uuid.UUID `db:"id" json:"id"`
	EncounterID uuid.UUID `db:"encounter_id" json:"encounter_id"`
	Tooth       string    `db:"tooth" json:"tooth,omitempty"`
	Procedure   string    `db:"procedure" json:"procedure"`
	Description string    `db:"description" json:"description,omitempty"`
	Surface     string    `db:"surface" json:"surface,omitempty"`
	Notes       string    `db:"notes" json:"notes,omitempty"`
	Cost        *float64  `db:"cost" json:"cost,omitempty"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

func (e *Encounter) Validate() error {
	if e.PatientID == uuid.Nil {
		return &ValidationError{Field: "patient_id", Reason: "is required"}
	}
	if e.Status == "" {
		e.Status = "scheduled"
	}
	if !validStatuses[e.Status] {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", e.Status)}
	}
	for i := range e.Treatments {
		if err := e.Treatments[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (t *Treatment) Validate() error {
	if t.Procedure == "" {
		return &ValidationError{Field: "procedure", Reason: "is required"}
	}
	if t.Status == "" {
		t.Status = "planned"
	}
	if !validTreatmentStatuses[t.Status] {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown treatment status %q", t.Status)}
	}
	if t.Tooth != "" && !ValidFDITooth(t.Tooth) {
		return &ValidationError{Field: "tooth", Reason: fmt.Sprintf("%q is not FDI notation", t.Tooth)}
	}
	if t.Surface != "" && !validSurfaces[t.Surface] {
		return &ValidationError{Field: "surface", Reason: fmt.Sprintf("unknown surface %q", t.Surface)}
	}
	if t.Cost != nil && *t.Cost < 0 {
		return &ValidationError{Field: "cost", Reason: "must not be negative"}
	}
	return nil
}

// ValidFDITooth reports whether s is a two-digit FDI tooth number:
// quadrants 1-4 with positions 1-8 (permanent), quadrants 5-8 with
// positions 1-5 (deciduous).
func ValidFDITooth(s string) bool {
	if len(s) != 2 {
		return false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return false
	}
	quadrant, position := n/10, n%10
	switch {
	case quadrant >= 1 && quadrant <= 4:
		return position >= 1 && position <= 8
	case quadrant >= 5 && quadrant <= 8:
		return position >= 1 && position <= 5
	default:
		return false
	}
}

// Snapshot returns the audit view of the encounter row itself; treatments
// audit individually.
func (e *Encounter) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"patient_id":  e.PatientID,
		"provider_id": e.ProviderID,
		"occurred_at": e.OccurredAt,
		"status":      e.Status,
		"notes":       e.Notes,
		"updated_at":  e.UpdatedAt,
	}
}

func (t *Treatment) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"encounter_id": t.EncounterID,
		"tooth":        t.Tooth,
		"procedure":    t.Procedure,
		"description":  t.Description,
		"surface":      t.Surface,
		"notes":        t.Notes,
		"cost":         t.Cost,
		"status":       t.Status,
		"updated_at":   t.UpdatedAt,
	}
}
