package audit

import (
	"context"

	"github.com/google/uuid"
)

// Service is the query surface over the audit trail. Writes go through the
// Recorder only.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	return s.repo.Search(ctx, f, limit, offset)
}
