package anamnesis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Crissavino/medical-dental-history/internal/domain/audit"
	"github.com/Crissavino/medical-dental-history/internal/domain/patient"
	"github.com/Crissavino/medical-dental-history/internal/domain/staff"
	"github.com/Crissavino/medical-dental-history/internal/platform/auth"
)

type mockRepo struct {
	versions map[uuid.UUID]*Version
}

func newMockRepo() *mockRepo {
	return &mockRepo{versions: make(map[uuid.UUID]*Version)}
}

func (m *mockRepo) Insert(ctx context.Context, v *Version) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.Version == 0 {
		max := 0
		for _, ex := range m.versions {
			if ex.PatientID == v.PatientID && ex.Version > max {
				max = ex.Version
			}
		}
		v.Version = max + 1
	} else {
		for _, ex := range m.versions {
			if ex.PatientID == v.PatientID && ex.Version == v.Version {
				return ErrVersionConflict
			}
		}
	}
	v.CreatedAt = time.Now()
	cp := *v
	m.versions[v.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Version, error) {
	v, ok := m.versions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *mockRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Version, error) {
	var items []*Version
	for _, v := range m.versions {
		if v.PatientID == patientID {
			cp := *v
			items = append(items, &cp)
		}
	}
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if items[j].Version > items[i].Version {
				items[i], items[j] = items[j], items[i]
			}
		}
	}
	return items, nil
}

func (m *mockRepo) LatestByPatient(ctx context.Context, patientID uuid.UUID) (*Version, error) {
	items, _ := m.ListByPatient(ctx, patientID)
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items[0], nil
}

func (m *mockRepo) Sign(ctx context.Context, id, clinicianID uuid.UUID, signature string) (*Version, error) {
	v, ok := m.versions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if v.SignedBy != nil {
		return nil, ErrAlreadySigned
	}
	now := time.Now()
	v.SignedBy = &clinicianID
	v.SignedAt = &now
	v.ClinicianSignature = &signature
	cp := *v
	return &cp, nil
}

type mockPatients struct {
	patients map[uuid.UUID]*patient.Patient
}

func (m *mockPatients) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

type mockSignatures struct {
	stored map[uuid.UUID]string
}

func (m *mockSignatures) ResolveSignature(ctx context.Context, clinicianID uuid.UUID, supplied string) (string, error) {
	if sig, ok := m.stored[clinicianID]; ok && sig != "" {
		return sig, nil
	}
	if supplied == "" {
		return "", staff.ErrSignatureRequired
	}
	if m.stored == nil {
		m.stored = make(map[uuid.UUID]string)
	}
	m.stored[clinicianID] = supplied
	return supplied, nil
}

type mockAuditRepo struct {
	entries []*audit.Entry
}

func (m *mockAuditRepo) Insert(ctx context.Context, e *audit.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockAuditRepo) GetByID(ctx context.Context, id uuid.UUID) (*audit.Entry, error) {
	return nil, audit.ErrNotFound
}

func (m *mockAuditRepo) Search(ctx context.Context, f audit.Filter, limit, offset int) ([]*audit.Entry, int, error) {
	return m.entries, len(m.entries), nil
}

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	svc        *Service
	repo       *mockRepo
	patients   *mockPatients
	signatures *mockSignatures
	auditRepo  *mockAuditRepo
}

func newFixture() *fixture {
	repo := newMockRepo()
	patients := &mockPatients{patients: make(map[uuid.UUID]*patient.Patient)}
	signatures := &mockSignatures{}
	auditRepo := &mockAuditRepo{}
	recorder := audit.NewRecorder(auditRepo, zerolog.Nop())
	svc := NewService(repo, patients, signatures, recorder, passthroughTx, zerolog.Nop())
	return &fixture{svc: svc, repo: repo, patients: patients, signatures: signatures, auditRepo: auditRepo}
}

func clinicianContext(id uuid.UUID) context.Context {
	ctx := context.WithValue(context.Background(), auth.ActorIDKey, id.String())
	return context.WithValue(ctx, auth.ActorRolesKey, []string{auth.RoleDentist})
}

func TestCreate_SequentialVersions(t *testing.T) {
	f := newFixture()
	patientID := uuid.New()
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		v := &Version{PatientID: patientID, ConsentGiven: true}
		require.NoError(t, f.svc.Create(ctx, v))
		assert.Equal(t, want, v.Version)
	}
}

func TestCreate_ExplicitVersionKept(t *testing.T) {
	f := newFixture()
	patientID := uuid.New()

	v := &Version{PatientID: patientID, ConsentGiven: true, Version: 7}
	require.NoError(t, f.svc.Create(context.Background(), v))
	assert.Equal(t, 7, v.Version)

	dup := &Version{PatientID: patientID, ConsentGiven: true, Version: 7}
	err := f.svc.Create(context.Background(), dup)
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestCreate_ConsentRequired(t *testing.T) {
	f := newFixture()

	v := &Version{PatientID: uuid.New(), ConsentGiven: false}
	err := f.svc.Create(context.Background(), v)
	assert.ErrorIs(t, err, ErrConsentRequired)
	assert.Empty(t, f.repo.versions, "nothing may be persisted on consent failure")
	assert.Empty(t, f.auditRepo.entries)
}

func TestCreate_CapturesConsentMetadata(t *testing.T) {
	f := newFixture()
	ctx := context.WithValue(context.Background(), auth.ClientIPKey, "192.0.2.7")

	v := &Version{PatientID: uuid.New(), ConsentGiven: true}
	require.NoError(t, f.svc.Create(ctx, v))
	assert.Equal(t, "192.0.2.7", v.ConsentIP)
	require.NotNil(t, v.ConsentGivenAt)
	assert.Equal(t, "en", v.Language, "language defaults to english")
}

func TestCreate_RejectsUnknownLanguage(t *testing.T) {
	f := newFixture()

	v := &Version{PatientID: uuid.New(), ConsentGiven: true, Language: "de"}
	err := f.svc.Create(context.Background(), v)
	assert.ErrorIs(t, err, ErrInvalidLanguage)
}

func TestSign_Once(t *testing.T) {
	f := newFixture()
	clinician := uuid.New()
	ctx := clinicianContext(clinician)

	v := &Version{PatientID: uuid.New(), ConsentGiven: true}
	require.NoError(t, f.svc.Create(ctx, v))

	signed, err := f.svc.Sign(ctx, v.ID, "data:image/png;base64,c2ln")
	require.NoError(t, err)
	require.NotNil(t, signed.SignedBy)
	assert.Equal(t, clinician, *signed.SignedBy)
	assert.NotNil(t, signed.SignedAt)
}

func TestSign_SecondTimeFails(t *testing.T) {
	f := newFixture()
	first := uuid.New()
	second := uuid.New()

	v := &Version{PatientID: uuid.New(), ConsentGiven: true}
	require.NoError(t, f.svc.Create(clinicianContext(first), v))

	signed, err := f.svc.Sign(clinicianContext(first), v.ID, "sigdata")
	require.NoError(t, err)

	_, err = f.svc.Sign(clinicianContext(second), v.ID, "otherdata")
	assert.ErrorIs(t, err, ErrAlreadySigned)

	after, err := f.svc.Get(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, *signed.SignedBy, *after.SignedBy, "stored signer must not change")
}

func TestSign_PersistsClinicianSignature(t *testing.T) {
	f := newFixture()
	clinician := uuid.New()
	ctx := clinicianContext(clinician)

	v := &Version{PatientID: uuid.New(), ConsentGiven: true}
	require.NoError(t, f.svc.Create(ctx, v))

	_, err := f.svc.Sign(ctx, v.ID, "first-signature")
	require.NoError(t, err)
	assert.Equal(t, "first-signature", f.signatures.stored[clinician])

	// A later version signed by the same clinician reuses the stored image.
	v2 := &Version{PatientID: v.PatientID, ConsentGiven: true}
	require.NoError(t, f.svc.Create(ctx, v2))
	signed2, err := f.svc.Sign(ctx, v2.ID, "different-signature")
	require.NoError(t, err)
	assert.Equal(t, "first-signature", *signed2.ClinicianSignature)
}

func TestSign_NoSignatureAvailable(t *testing.T) {
	f := newFixture()
	ctx := clinicianContext(uuid.New())

	v := &Version{PatientID: uuid.New(), ConsentGiven: true}
	require.NoError(t, f.svc.Create(ctx, v))

	_, err := f.svc.Sign(ctx, v.ID, "")
	assert.ErrorIs(t, err, staff.ErrSignatureRequired)
}

func TestImmutability_SecondSubmissionLeavesFirstUntouched(t *testing.T) {
	f := newFixture()
	patientID := uuid.New()
	ctx := context.Background()

	first := &Version{
		PatientID:    patientID,
		ConsentGiven: true,
		FormData: FormData{
			Habits: &Habits{Tobacco: true, TobaccoAmount: "10/day"},
		},
	}
	require.NoError(t, f.svc.Create(ctx, first))

	second := &Version{PatientID: patientID, ConsentGiven: true}
	require.NoError(t, f.svc.Create(ctx, second))

	reread, err := f.svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reread.Version)
	require.NotNil(t, reread.FormData.Habits)
	assert.Equal(t, "10/day", reread.FormData.Habits.TobaccoAmount)
}
