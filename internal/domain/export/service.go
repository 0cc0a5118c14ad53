// Package export builds the GDPR data-portability archive for one patient:
// identity, every questionnaire version, every encounter with its treatment
// lines, and the original attachment files.
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Crissavino/medical-dental-history/internal/domain/anamnesis"
	"github.com/Crissavino/medical-dental-history/internal/domain/attachment"
	"github.com/Crissavino/medical-dental-history/internal/domain/encounter"
	"github.com/Crissavino/medical-dental-history/internal/domain/patient"
	"github.com/Crissavino/medical-dental-history/internal/domain/staff"
	"github.com/Crissavino/medical-dental-history/internal/platform/blobstore"
	"github.com/Crissavino/medical-dental-history/internal/platform/db"
)

const encounterPageSize = 100

type PatientSource interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type VersionSource interface {
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*anamnesis.Version, error)
}

type EncounterSource interface {
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*encounter.Encounter, int, error)
}

type AttachmentSource interface {
	ListByOwner(ctx context.Context, ownerType string, ownerID uuid.UUID) ([]*attachment.Attachment, error)
}

type StaffSource interface {
	Get(ctx context.Context, id uuid.UUID) (*staff.Member, error)
}

type Service struct {
	patients    PatientSource
	versions    VersionSource
	encounters  EncounterSource
	attachments AttachmentSource
	staff       StaffSource
	blobs       blobstore.Store
	snapshot    db.TxRunner
	logger      zerolog.Logger
}

func NewService(
	patients PatientSource,
	versions VersionSource,
	encounters EncounterSource,
	attachments AttachmentSource,
	staffSource StaffSource,
	blobs blobstore.Store,
	snapshot db.TxRunner,
	logger zerolog.Logger,
) *Service {
	return &Service{
		patients:    patients,
		versions:    versions,
		encounters:  encounters,
		attachments: attachments,
		staff:       staffSource,
		blobs:       blobs,
		snapshot:    snapshot,
		logger:      logger,
	}
}

// encounterDoc is the export view of a visit: the stored row plus the
// provider's display name resolved for the reader.
type encounterDoc struct {
	*encounter.Encounter
	ProviderName string `json:"provider_name,omitempty"`
}

// Export assembles the archive in a temp file and returns a reader that
// deletes the file when closed. The database reads run inside one
// repeatable-read snapshot so the documents are mutually consistent.
func (s *Service) Export(ctx context.Context, patientID uuid.UUID) (io.ReadCloser, string, error) {
	var (
		p           *patient.Patient
		versions    []*anamnesis.Version
		encounters  []*encounter.Encounter
		attachments []*attachment.Attachment
		names       = map[uuid.UUID]string{}
	)

	err := s.snapshot(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.patients.Get(ctx, patientID)
		if err != nil {
			return err
		}

		versions, err = s.versions.ListByPatient(ctx, patientID)
		if err != nil {
			return err
		}

		for offset := 0; ; offset += encounterPageSize {
			page, total, err := s.encounters.ListByPatient(ctx, patientID, encounterPageSize, offset)
			if err != nil {
				return err
			}
			encounters = append(encounters, page...)
			if offset+encounterPageSize >= total || len(page) == 0 {
				break
			}
		}

		for _, e := range encounters {
			if e.ProviderID == nil {
				continue
			}
			if _, ok := names[*e.ProviderID]; ok {
				continue
			}
			m, err := s.staff.Get(ctx, *e.ProviderID)
			if err != nil {
				if errors.Is(err, staff.ErrNotFound) {
					continue
				}
				return err
			}
			names[*e.ProviderID] = m.Name
		}

		attachments, err = s.collectAttachments(ctx, patientID, encounters)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("gdpr-export-%s.zip", p.Identifier)
	rc, err := s.buildArchive(ctx, p, versions, encounters, names, attachments)
	if err != nil {
		return nil, "", err
	}
	return rc, filename, nil
}

func (s *Service) collectAttachments(ctx context.Context, patientID uuid.UUID, encounters []*encounter.Encounter) ([]*attachment.Attachment, error) {
	var all []*attachment.Attachment

	add := func(ownerType string, ownerID uuid.UUID) error {
		items, err := s.attachments.ListByOwner(ctx, ownerType, ownerID)
		if err != nil {
			return err
		}
		all = append(all, items...)
		return nil
	}

	if err := add(attachment.OwnerPatient, patientID); err != nil {
		return nil, err
	}
	for _, e := range encounters {
		if err := add(attachment.OwnerEncounter, e.ID); err != nil {
			return nil, err
		}
		for _, t := range e.Treatments {
			if err := add(attachment.OwnerTreatment, t.ID); err != nil {
				return nil, err
			}
		}
	}
	return all, nil
}

func (s *Service) buildArchive(
	ctx context.Context,
	p *patient.Patient,
	versions []*anamnesis.Version,
	encounters []*encounter.Encounter,
	providerNames map[uuid.UUID]string,
	attachments []*attachment.Attachment,
) (rc io.ReadCloser, err error) {
	tmp, err := os.CreateTemp("", "gdpr-export-*.zip")
	if err != nil {
		return nil, fmt.Errorf("create export temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)

	if err = writeJSONEntry(zw, "patient.json", p); err != nil {
		return nil, err
	}
	if err = writeJSONEntry(zw, "anamnesis.json", stripSignatures(versions)); err != nil {
		return nil, err
	}

	docs := make([]encounterDoc, 0, len(encounters))
	for _, e := range encounters {
		doc := encounterDoc{Encounter: e}
		if e.ProviderID != nil {
			doc.ProviderName = providerNames[*e.ProviderID]
		}
		docs = append(docs, doc)
	}
	if err = writeJSONEntry(zw, "encounters.json", docs); err != nil {
		return nil, err
	}

	if err = s.writeAttachments(ctx, zw, attachments); err != nil {
		return nil, err
	}

	if err = zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	if _, err = tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind archive: %w", err)
	}
	return &tempFile{File: tmp}, nil
}

// writeAttachments copies each stored blob into attachments/ under its
// original filename. A blob missing from the store is skipped, not fatal;
// the archive must still be produced. Duplicate filenames get a numeric
// prefix so no entry overwrites another.
func (s *Service) writeAttachments(ctx context.Context, zw *zip.Writer, attachments []*attachment.Attachment) error {
	used := map[string]int{}
	for _, a := range attachments {
		blob, err := s.blobs.Get(ctx, a.StoragePath)
		if err != nil {
			if errors.Is(err, blobstore.ErrNotFound) {
				s.logger.Warn().
					Str("attachment_id", a.ID.String()).
					Str("path", a.StoragePath).
					Msg("blob missing, skipping export entry")
				continue
			}
			return fmt.Errorf("read blob %s: %w", a.StoragePath, err)
		}

		name := a.Filename
		used[name]++
		if n := used[name]; n > 1 {
			name = fmt.Sprintf("%d-%s", n, name)
		}

		w, err := zw.Create("attachments/" + name)
		if err != nil {
			blob.Close()
			return err
		}
		if _, err := io.Copy(w, blob); err != nil {
			blob.Close()
			return fmt.Errorf("copy blob %s: %w", a.StoragePath, err)
		}
		blob.Close()
	}
	return nil
}

// stripSignatures returns copies of the versions with the signature images
// removed. Consent metadata and signing timestamps stay; the images do not
// belong in a portability export.
func stripSignatures(versions []*anamnesis.Version) []*anamnesis.Version {
	out := make([]*anamnesis.Version, 0, len(versions))
	for _, v := range versions {
		cp := *v
		cp.SignatureData = nil
		cp.ClinicianSignature = nil
		out = append(out, &cp)
	}
	return out
}

// writeJSONEntry stores one pretty-printed document. HTML escaping is off
// so free-text notes survive verbatim.
func writeJSONEntry(zw *zip.Writer, name string, v interface{}) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// tempFile removes the underlying file once the response has been streamed.
type tempFile struct {
	*os.File
}

func (f *tempFile) Close() error {
	err := f.File.Close()
	os.Remove(f.Name())
	return err
}
