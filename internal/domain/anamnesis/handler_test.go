package anamnesis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Crissavino/medical-dental-history/internal/domain/audit"
	"github.com/Crissavino/medical-dental-history/internal/domain/patient"
)

type intakePatientRepo struct {
	patients map[uuid.UUID]*patient.Patient
	nextSeq  int
}

func newIntakePatientRepo() *intakePatientRepo {
	return &intakePatientRepo{patients: make(map[uuid.UUID]*patient.Patient)}
}

func (m *intakePatientRepo) Insert(ctx context.Context, p *patient.Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.nextSeq++
	p.Identifier = fmt.Sprintf("P-%06d", m.nextSeq)
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *intakePatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *intakePatientRepo) GetByIdentifier(ctx context.Context, identifier string) (*patient.Patient, error) {
	for _, p := range m.patients {
		if p.Identifier == identifier {
			cp := *p
			return &cp, nil
		}
	}
	return nil, patient.ErrNotFound
}

func (m *intakePatientRepo) Update(ctx context.Context, p *patient.Patient) error {
	existing, ok := m.patients[p.ID]
	if !ok {
		return patient.ErrNotFound
	}
	p.Identifier = existing.Identifier
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *intakePatientRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	delete(m.patients, id)
	return nil
}

func (m *intakePatientRepo) Search(ctx context.Context, query string, limit, offset int) ([]*patient.Patient, int, error) {
	return nil, 0, nil
}

func newIntakeHandler() (*Handler, *intakePatientRepo, *fixture) {
	f := newFixture()
	prepo := newIntakePatientRepo()
	recorder := audit.NewRecorder(&mockAuditRepo{}, zerolog.Nop())
	psvc := patient.NewService(prepo, recorder, passthroughTx, zerolog.Nop())
	return NewHandler(f.svc, psvc), prepo, f
}

func postIntake(h *Handler, body string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/intake", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, h.SubmitIntake(e.NewContext(req, rec))
}

func TestSubmitIntake_NewPatientAndVersion(t *testing.T) {
	h, prepo, f := newIntakeHandler()

	rec, err := postIntake(h, `{
		"first_name": "Ana", "last_name": "Pop", "phone": "0711",
		"consent_given": true,
		"form_data": {"habits": {"tobacco": true, "tobacco_amount": "5/day"}}
	}`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "P-000001", resp["patient_identifier"])
	assert.EqualValues(t, 1, resp["version"])
	require.Len(t, prepo.patients, 1)
	require.Len(t, f.repo.versions, 1)
}

func TestSubmitIntake_ConsentRefusedPersistsNothing(t *testing.T) {
	h, prepo, f := newIntakeHandler()

	_, err := postIntake(h, `{"first_name": "Ana", "last_name": "Pop", "consent_given": false}`)

	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError, got %v", err)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	assert.Empty(t, prepo.patients, "no patient row may survive a rejected intake")
	assert.Empty(t, f.repo.versions)
}

func TestSubmitIntake_UnknownLanguagePersistsNothing(t *testing.T) {
	h, prepo, f := newIntakeHandler()

	_, err := postIntake(h, `{"first_name": "Ana", "last_name": "Pop", "consent_given": true, "language": "de"}`)

	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError, got %v", err)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	assert.Empty(t, prepo.patients)
	assert.Empty(t, f.repo.versions)
}

func TestSubmitIntake_ExistingPatientRefreshesContactFields(t *testing.T) {
	h, prepo, _ := newIntakeHandler()

	p := &patient.Patient{
		FirstName: "Ana", LastName: "Pop",
		Email: "old@example.com", City: "Cluj", County: "CJ", CNP: "123",
	}
	require.NoError(t, prepo.Insert(context.Background(), p))

	rec, err := postIntake(h, `{
		"patient_id": "`+p.ID.String()+`",
		"email": "new@example.com", "phone": "0722",
		"city": "Brasov", "county": "BV", "cnp": "456",
		"consent_given": true
	}`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)

	stored := prepo.patients[p.ID]
	assert.Equal(t, "new@example.com", stored.Email)
	assert.Equal(t, "0722", stored.Phone)
	assert.Equal(t, "Brasov", stored.City)
	assert.Equal(t, "BV", stored.County)
	assert.Equal(t, "456", stored.CNP)
	assert.Equal(t, "Pop", stored.LastName, "identity fields stay as registered")
}

func TestSubmitIntake_UnknownPatientID(t *testing.T) {
	h, _, f := newIntakeHandler()

	_, err := postIntake(h, `{"patient_id": "`+uuid.NewString()+`", "consent_given": true}`)

	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError, got %v", err)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
	assert.Empty(t, f.repo.versions)
}
