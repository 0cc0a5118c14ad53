package staff

import (
	"context"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Member, error) {
	return s.repo.GetByID(ctx, id)
}

// ResolveSignature returns the clinician's signature image for a signing
// operation. The stored profile image wins; when none is on file, the
// supplied image is persisted for reuse and returned. With neither,
// ErrSignatureRequired.
func (s *Service) ResolveSignature(ctx context.Context, clinicianID uuid.UUID, supplied string) (string, error) {
	m, err := s.repo.GetByID(ctx, clinicianID)
	if err != nil {
		return "", err
	}
	if m.SignatureData != nil && *m.SignatureData != "" {
		return *m.SignatureData, nil
	}
	if supplied == "" {
		return "", ErrSignatureRequired
	}
	if err := s.repo.SetSignature(ctx, clinicianID, supplied); err != nil {
		return "", err
	}
	return supplied, nil
}
