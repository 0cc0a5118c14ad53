package encounter

import (
	"context"
	"fmt"

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

func (s *Service) Create(ctx context.Context, e *Encounter) error {
	if err := e.Validate(); err != nil {
		return err
	}

	return s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.Insert(ctx, e); err != nil {
			return err
		}
		if err := s.auditor.Created(ctx, audit.EntityEncounter, e.ID, e.Snapshot()); err != nil {
			return err
		}

		for i := range e.Treatments {
			t := &e.Treatments[i]
			t.EncounterID = e.ID
			if err := s.repo.InsertTreatment(ctx, t); err != nil {
				return err
			}
			if err := s.auditor.Created(ctx, audit.EntityTreatment, t.ID, t.Snapshot()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// Update applies the encounter fields and reconciles the submitted
// treatment set against the stored one: stored lines whose id is absent
// from the submission are deleted, lines with an id are updated in place,
// lines without an id are inserted. One transaction; a client that omits a
// line deletes it.
func (s *Service) Update(ctx context.Context, e *Encounter) error {
	if err := e.Validate(); err != nil {
		return err
	}

	return s.tx(ctx, func(ctx context.Context) error {
		old, err := s.repo.GetByID(ctx, e.ID)
		if err != nil {
			return err
		}

		if err := s.repo.Update(ctx, e); err != nil {
			return err
		}
		updatedRow, err := s.repo.GetByID(ctx, e.ID)
		if err != nil {
			return err
		}
		if err := s.auditor.Updated(ctx, audit.EntityEncounter, e.ID, old.Snapshot(), updatedRow.Snapshot()); err != nil {
			return err
		}

		if err := s.reconcileTreatments(ctx, e, old.Treatments); err != nil {
			return err
		}

		fresh, err := s.repo.GetByID(ctx, e.ID)
		if err != nil {
			return err
		}
		*e = *fresh
		return nil
	})
}

func (s *Service) reconcileTreatments(ctx context.Context, e *Encounter, stored []Treatment) error {
	storedByID := make(map[uuid.UUID]*Treatment, len(stored))
	for i := range stored {
		storedByID[stored[i].ID] = &stored[i]
	}

	submitted := make(map[uuid.UUID]bool)
	for i := range e.Treatments {
		if e.Treatments[i].ID != uuid.Nil {
			submitted[e.Treatments[i].ID] = true
		}
	}

	for i := range stored {
		t := &stored[i]
		if submitted[t.ID] {
			continue
		}
		if err := s.repo.DeleteTreatment(ctx, t.ID); err != nil {
			return err
		}
		if err := s.auditor.Deleted(ctx, audit.EntityTreatment, t.ID, t.Snapshot()); err != nil {
			return err
		}
	}

	for i := range e.Treatments {
		t := &e.Treatments[i]
		t.EncounterID = e.ID

		if t.ID == uuid.Nil {
			if err := s.repo.InsertTreatment(ctx, t); err != nil {
				return err
			}
			if err := s.auditor.Created(ctx, audit.EntityTreatment, t.ID, t.Snapshot()); err != nil {
				return err
			}
			continue
		}

		before, ok := storedByID[t.ID]
		if !ok {
			return fmt.Errorf("treatment %s does not belong to encounter: %w", t.ID, ErrNotFound)
		}
		if err := s.repo.UpdateTreatment(ctx, t); err != nil {
			return err
		}
		if err := s.auditor.Updated(ctx, audit.EntityTreatment, t.ID, before.Snapshot(), t.Snapshot()); err != nil {
			return err
		}
	}
	return nil
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
		return s.auditor.Deleted(ctx, audit.EntityEncounter, id, old.Snapshot())
	})
}
