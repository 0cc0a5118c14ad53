package attachment

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Crissavino/medical-dental-history/internal/domain/audit"
	"github.com/Crissavino/medical-dental-history/internal/platform/auth"
	"github.com/Crissavino/medical-dental-history/internal/platform/blobstore"
	"github.com/Crissavino/medical-dental-history/internal/platform/db"
)

type Service struct {
	repo    Repository
	blobs   blobstore.Store
	auditor *audit.Recorder
	tx      db.TxRunner
	logger  zerolog.Logger
}

func NewService(repo Repository, blobs blobstore.Store, auditor *audit.Recorder, tx db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{repo: repo, blobs: blobs, auditor: auditor, tx: tx, logger: logger}
}

// UploadInput carries one multipart file plus its owner reference.
type UploadInput struct {
	OwnerType   string
	OwnerID     uuid.UUID
	Filename    string
	MimeType    string
	Size        int64
	Description string
	Content     io.Reader
}

// Upload writes the blob first, then the row. A failed row insert cleans
// the blob back up so the store holds no orphans.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*Attachment, error) {
	if !ValidOwnerType(in.OwnerType) {
		return nil, ErrInvalidOwner
	}

	a := &Attachment{
		ID:          uuid.New(),
		OwnerType:   in.OwnerType,
		OwnerID:     in.OwnerID,
		Filename:    in.Filename,
		MimeType:    in.MimeType,
		Size:        in.Size,
		Description: in.Description,
	}
	if actor := auth.ActorIDFromContext(ctx); actor != "" {
		a.UploadedBy = &actor
	}
	a.StoragePath = a.BlobPath()

	if err := s.blobs.Put(ctx, a.StoragePath, in.Content); err != nil {
		return nil, err
	}

	err := s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.Insert(ctx, a); err != nil {
			return err
		}
		return s.auditor.Created(ctx, audit.EntityAttachment, a.ID, a.Snapshot())
	})
	if err != nil {
		if delErr := s.blobs.Delete(ctx, a.StoragePath); delErr != nil {
			s.logger.Warn().Err(delErr).Str("path", a.StoragePath).Msg("orphan blob left after failed insert")
		}
		return nil, err
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Attachment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByOwner(ctx context.Context, ownerType string, ownerID uuid.UUID) ([]*Attachment, error) {
	if !ValidOwnerType(ownerType) {
		return nil, ErrInvalidOwner
	}
	return s.repo.ListByOwner(ctx, ownerType, ownerID)
}

// Download returns the attachment row and a reader over its content. The
// caller closes the reader.
func (s *Service) Download(ctx context.Context, id uuid.UUID) (*Attachment, io.ReadCloser, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Get(ctx, a.StoragePath)
	if err != nil {
		return nil, nil, err
	}
	return a, rc, nil
}

// Delete removes the blob, then the row. A blob already gone does not
// block removal of the row.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, a.StoragePath); err != nil {
		if !errors.Is(err, blobstore.ErrNotFound) {
			return err
		}
		s.logger.Warn().Str("path", a.StoragePath).Msg("blob already missing on delete")
	}

	return s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.auditor.Deleted(ctx, audit.EntityAttachment, id, a.Snapshot())
	})
}
