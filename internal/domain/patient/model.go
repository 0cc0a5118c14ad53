package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Patient is one person's identity record. The uuid is the technical key;
// Identifier is the human-facing chart number (P-000001, ...) assigned once
// at creation and never reused, soft-deleted rows included.
type Patient struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Identifier  string     `db:"identifier" json:"identifier"`
	FirstName   string     `db:"first_name" json:"first_name"`
	LastName    string     `db:"last_name" json:"last_name"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender      string     `db:"gender" json:"gender,omitempty"`
	Email       string     `db:"email" json:"email,omitempty"`
	Phone       string     `db:"phone" json:"phone,omitempty"`
	Address     string     `db:"address" json:"address,omitempty"`
	City        string     `db:"city" json:"city,omitempty"`
	County      string     `db:"county" json:"county,omitempty"`
	CNP         string     `db:"cnp" json:"cnp,omitempty"`
	Notes       string     `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time `db:"deleted_at" json:"-"`
}

// FullName renders "Last, First" the way documents print it.
func (p *Patient) FullName() string {
	return strings.TrimSpace(p.LastName + ", " + p.FirstName)
}

// Snapshot returns the audit view of the record.
func (p *Patient) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"identifier":    p.Identifier,
		"first_name":    p.FirstName,
		"last_name":     p.LastName,
		"date_of_birth": p.DateOfBirth,
		"gender":        p.Gender,
		"email":         p.Email,
		"phone":         p.Phone,
		"address":       p.Address,
		"city":          p.City,
		"county":        p.County,
		"cnp":           p.CNP,
		"notes":         p.Notes,
		"updated_at":    p.UpdatedAt,
	}
}

// Validate checks the fields a caller must supply.
func (p *Patient) Validate() error {
	if strings.TrimSpace(p.FirstName) == "" {
		return &ValidationError{Field: "first_name", Reason: "required"}
	}
	if strings.TrimSpace(p.LastName) == "" {
		return &ValidationError{Field: "last_name", Reason: "required"}
	}
	switch p.Gender {
	case "", "male", "female", "other":
	default:
		return &ValidationError{Field: "gender", Reason: "must be male, female or other"}
	}
	return nil
}

// ValidationError carries field-level detail for a 400 response.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}
