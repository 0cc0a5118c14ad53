// Package staff is the minimal registry behind recorded_by, signed_by and
// provider references. Authentication lives outside; this only stores the
// people rows other records point at, plus each clinician's reusable
// signature image.
package staff

import (
	"time"

	"github.com/google/uuid"
)

type Member struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Email         string    `db:"email" json:"email"`
	Role          string    `db:"role" json:"role"`
	SignatureData *string   `db:"signature_data" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
