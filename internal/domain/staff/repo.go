package staff

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("staff member not found")
	ErrSignatureRequired = errors.New("clinician has no signature on file and none was supplied")
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Member, error)
	// SetSignature stores the signature image on the member's profile only
	// when none is stored yet; the first signature wins.
	SetSignature(ctx context.Context, id uuid.UUID, signature string) error
}
