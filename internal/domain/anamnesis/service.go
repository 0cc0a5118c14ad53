package anamnesis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Crissavino/medical-dental-history/internal/domain/audit"
	"github.com/Crissavino/medical-dental-history/internal/domain/patient"
	"github.com/Crissavino/medical-dental-history/internal/platform/auth"
	"github.com/Crissavino/medical-dental-history/internal/platform/db"
	"github.com/Crissavino/medical-dental-history/internal/platform/i18n"
)

// PatientLookup is the slice of the patient repository this service needs.
type PatientLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// SignatureResolver supplies the clinician's reusable signature image,
// persisting a newly supplied one on first use.
type SignatureResolver interface {
	ResolveSignature(ctx context.Context, clinicianID uuid.UUID, supplied string) (string, error)
}

type Service struct {
	repo       Repository
	patients   PatientLookup
	signatures SignatureResolver
	auditor    *audit.Recorder
	tx         db.TxRunner
	logger     zerolog.Logger
}

func NewService(repo Repository, patients PatientLookup, signatures SignatureResolver,
	auditor *audit.Recorder, tx db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		patients:   patients,
		signatures: signatures,
		auditor:    auditor,
		tx:         tx,
		logger:     logger,
	}
}

// ValidateNew checks the submission fields that gate persistence. The
// intake flow calls it before registering a new patient, so a rejected
// questionnaire leaves no row behind.
func (s *Service) ValidateNew(v *Version) error {
	if !v.ConsentGiven {
		return ErrConsentRequired
	}
	if v.Language != "" && !i18n.Supported(v.Language) {
		return ErrInvalidLanguage
	}
	return nil
}

// Create stores a new immutable questionnaire version. Consent must be
// explicitly affirmed; its timestamp and the submitting client's address
// are captured here, write-once.
func (s *Service) Create(ctx context.Context, v *Version) error {
	if err := s.ValidateNew(v); err != nil {
		return err
	}
	if v.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if v.Language == "" {
		v.Language = i18n.DefaultLanguage
	}

	now := time.Now().UTC()
	v.ConsentGivenAt = &now
	if ip := auth.ClientIPFromContext(ctx); ip != "" {
		v.ConsentIP = ip
	}

	return s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.Insert(ctx, v); err != nil {
			return err
		}
		return s.auditor.Created(ctx, audit.EntityAnamnesis, v.ID, v.Snapshot())
	})
}

// Sign applies the clinician counter-signature, once. The acting clinician
// comes from the request context; their stored signature image wins over a
// supplied one, and a supplied image is persisted to their profile when
// none is on file yet.
func (s *Service) Sign(ctx context.Context, id uuid.UUID, suppliedSignature string) (*Version, error) {
	actorID := auth.ActorIDFromContext(ctx)
	clinicianID, err := uuid.Parse(actorID)
	if err != nil {
		return nil, fmt.Errorf("acting user is not a staff member: %w", err)
	}

	var signed *Version
	err = s.tx(ctx, func(ctx context.Context) error {
		signature, err := s.signatures.ResolveSignature(ctx, clinicianID, suppliedSignature)
		if err != nil {
			return err
		}

		signed, err = s.repo.Sign(ctx, id, clinicianID, signature)
		if err != nil {
			return err
		}

		return s.auditor.Updated(ctx, audit.EntityAnamnesis, id,
			map[string]interface{}{"signed_by": nil, "signed_at": nil},
			map[string]interface{}{"signed_by": signed.SignedBy, "signed_at": signed.SignedAt},
		)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("version_id", id.String()).
		Str("clinician_id", clinicianID.String()).
		Msg("anamnesis version signed")
	return signed, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Version, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Version, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) LatestByPatient(ctx context.Context, patientID uuid.UUID) (*Version, error) {
	return s.repo.LatestByPatient(ctx, patientID)
}

// RenderPDF produces the questionnaire document for a version. The language
// resolves as override, then the version's language, then English; a
// language without a table falls back to the English table wholesale.
func (s *Service) RenderPDF(ctx context.Context, id uuid.UUID, languageOverride string) ([]byte, string, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	p, err := s.patients.GetByID(ctx, v.PatientID)
	if err != nil {
		return nil, "", err
	}

	lang := languageOverride
	if lang == "" {
		lang = v.Language
	}
	if lang == "" {
		lang = i18n.DefaultLanguage
	}
	if !i18n.Supported(lang) {
		lang = i18n.DefaultLanguage
	}

	table, err := i18n.Load(lang)
	if err != nil {
		return nil, "", fmt.Errorf("load translation table: %w", err)
	}

	pdf, err := Render(p, v, table)
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("anamnesis-%s-v%d-%s.pdf", p.Identifier, v.Version, lang)
	return pdf, filename, nil
}
