package patient

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Crissavino/medical-dental-history/internal/domain/audit"
)

type mockRepo struct {
	patients map[uuid.UUID]*Patient
	nextSeq  int
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Insert(ctx context.Context, p *Patient) error {
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

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok || p.DeletedAt != nil {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) GetByIdentifier(ctx context.Context, identifier string) (*Patient, error) {
	for _, p := range m.patients {
		if p.Identifier == identifier && p.DeletedAt == nil {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(ctx context.Context, p *Patient) error {
	existing, ok := m.patients[p.ID]
	if !ok || existing.DeletedAt != nil {
		return ErrNotFound
	}
	p.Identifier = existing.Identifier
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	p, ok := m.patients[id]
	if !ok || p.DeletedAt != nil {
		return ErrNotFound
	}
	now := time.Now()
	p.DeletedAt = &now
	return nil
}

func (m *mockRepo) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	var items []*Patient
	for _, p := range m.patients {
		if p.DeletedAt != nil {
			continue
		}
		if query == "" || strings.Contains(strings.ToLower(p.LastName), strings.ToLower(query)) {
			items = append(items, p)
		}
	}
	return items, len(items), nil
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

func newTestService() (*Service, *mockRepo, *mockAuditRepo) {
	repo := newMockRepo()
	auditRepo := &mockAuditRepo{}
	recorder := audit.NewRecorder(auditRepo, zerolog.Nop())
	return NewService(repo, recorder, passthroughTx, zerolog.Nop()), repo, auditRepo
}

func TestCreate_AssignsSequentialIdentifiers(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	first := &Patient{FirstName: "Ana", LastName: "Ionescu"}
	require.NoError(t, svc.Create(ctx, first))
	assert.Equal(t, "P-000001", first.Identifier)

	second := &Patient{FirstName: "Ion", LastName: "Popescu"}
	require.NoError(t, svc.Create(ctx, second))
	assert.Equal(t, "P-000002", second.Identifier)
}

func TestCreate_RecordsAuditEntry(t *testing.T) {
	svc, _, auditRepo := newTestService()

	p := &Patient{FirstName: "Ana", LastName: "Ionescu"}
	require.NoError(t, svc.Create(context.Background(), p))

	require.Len(t, auditRepo.entries, 1)
	e := auditRepo.entries[0]
	assert.Equal(t, audit.EntityPatient, e.EntityType)
	assert.Equal(t, p.ID, e.EntityID)
	assert.Equal(t, audit.ActionCreated, e.Action)
}

func TestCreate_ValidationFailureWritesNothing(t *testing.T) {
	svc, repo, auditRepo := newTestService()

	err := svc.Create(context.Background(), &Patient{FirstName: "Ana"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "last_name", ve.Field)
	assert.Empty(t, repo.patients)
	assert.Empty(t, auditRepo.entries)
}

func TestUpdate_SingleFieldDiff(t *testing.T) {
	svc, _, auditRepo := newTestService()
	ctx := context.Background()

	p := &Patient{FirstName: "Ana", LastName: "Ionescu", Notes: "old"}
	require.NoError(t, svc.Create(ctx, p))

	upd := *p
	upd.Notes = "new"
	require.NoError(t, svc.Update(ctx, &upd))

	require.Len(t, auditRepo.entries, 2)
	e := auditRepo.entries[1]
	assert.Equal(t, audit.ActionUpdated, e.Action)
	changedNew := e.Metadata["new"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"notes": "new"}, changedNew)
}

func TestUpdate_NoChangesNoAuditEntry(t *testing.T) {
	svc, _, auditRepo := newTestService()
	ctx := context.Background()

	p := &Patient{FirstName: "Ana", LastName: "Ionescu"}
	require.NoError(t, svc.Create(ctx, p))

	upd := *p
	require.NoError(t, svc.Update(ctx, &upd))

	assert.Len(t, auditRepo.entries, 1, "only the create entry should exist")
}

func TestUpdate_IdentifierNeverChanges(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p := &Patient{FirstName: "Ana", LastName: "Ionescu"}
	require.NoError(t, svc.Create(ctx, p))

	upd := *p
	upd.Identifier = "P-999999"
	require.NoError(t, svc.Update(ctx, &upd))
	assert.Equal(t, p.Identifier, upd.Identifier)
}

func TestDelete_RecordsPriorState(t *testing.T) {
	svc, repo, auditRepo := newTestService()
	ctx := context.Background()

	p := &Patient{FirstName: "Ana", LastName: "Ionescu", Phone: "0711"}
	require.NoError(t, svc.Create(ctx, p))
	require.NoError(t, svc.Delete(ctx, p.ID))

	_, err := svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotNil(t, repo.patients[p.ID].DeletedAt, "row must survive soft delete")

	e := auditRepo.entries[len(auditRepo.entries)-1]
	assert.Equal(t, audit.ActionDeleted, e.Action)
	oldState := e.Metadata["old"].(map[string]interface{})
	assert.Equal(t, "0711", oldState["phone"])
}

func TestFullName(t *testing.T) {
	p := Patient{FirstName: "Ana", LastName: "Ionescu"}
	assert.Equal(t, "Ionescu, Ana", p.FullName())
}
