package encounter

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Insert(ctx context.Context, e *Encounter) error
	GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error)
	Update(ctx context.Context, e *Encounter) error
	SoftDelete(ctx context.Context, id uuid.UUID) error

	ListTreatments(ctx context.Context, encounterID uuid.UUID) ([]Treatment, error)
	InsertTreatment(ctx context.Context, t *Treatment) error
	UpdateTreatment(ctx context.Context, t *Treatment) error
	DeleteTreatment(ctx context.Context, id uuid.UUID) error
}
