package anamnesis

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Insert stores a new version. A zero Version field means "assign the
	// next number for this patient"; a non-zero value is kept as supplied
	// (administrative correction path) and collides with ErrVersionConflict.
	Insert(ctx context.Context, v *Version) error
	GetByID(ctx context.Context, id uuid.UUID) (*Version, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Version, error)
	LatestByPatient(ctx context.Context, patientID uuid.UUID) (*Version, error)
	// Sign writes the clinician signature once; a second call returns
	// ErrAlreadySigned and leaves the stored signature untouched.
	Sign(ctx context.Context, id uuid.UUID, clinicianID uuid.UUID, signature string) (*Version, error)
}
