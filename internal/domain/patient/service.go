package patient

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Crissavino/medical-dental-history/internal/domain/audit"
	"github.com/Crissavino/medical-dental-history/internal/platform/db"
)

type Service struct {
	repo    Repository
	auditor *audit.Recorder
	tx      db.TxRunner
	logger  zerolog.Logger
}

func NewService(repo Repository, auditor *audit.Recorder, tx db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{repo: repo, auditor: auditor, tx: tx, logger: logger}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if err := p.Validate(); err != nil {
		return err
	}

	return s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.Insert(ctx, p); err != nil {
			return err
		}
		return s.auditor.Created(ctx, audit.EntityPatient, p.ID, p.Snapshot())
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByIdentifier(ctx context.Context, identifier string) (*Patient, error) {
	return s.repo.GetByIdentifier(ctx, identifier)
}

// Update applies the caller-editable fields and records the diff. The chart
// identifier never changes.
func (s *Service) Update(ctx context.Context, p *Patient) error {
	if err := p.Validate(); err != nil {
		return err
	}

	return s.tx(ctx, func(ctx context.Context) error {
		old, err := s.repo.GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		p.Identifier = old.Identifier

		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}

		updated, err := s.repo.GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		*p = *updated
		return s.auditor.Updated(ctx, audit.EntityPatient, p.ID, old.Snapshot(), updated.Snapshot())
	})
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx(ctx, func(ctx context.Context) error {
		old, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.repo.SoftDelete(ctx, id); err != nil {
			return err
		}
		return s.auditor.Deleted(ctx, audit.EntityPatient, id, old.Snapshot())
	})
}

func (s *Service) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.Search(ctx, query, limit, offset)
}
