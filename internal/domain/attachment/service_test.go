package attachment

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Crissavino/medical-dental-history/internal/domain/audit"
	"github.com/Crissavino/medical-dental-history/internal/platform/auth"
	"github.com/Crissavino/medical-dental-history/internal/platform/blobstore"
)

type mockRepo struct {
	attachments map[uuid.UUID]*Attachment
	insertErr   error
}

func newMockRepo() *mockRepo {
	return &mockRepo{attachments: make(map[uuid.UUID]*Attachment)}
}

func (m *mockRepo) Insert(ctx context.Context, a *Attachment) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	a.CreatedAt = time.Now()
	cp := *a
	m.attachments[a.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Attachment, error) {
	a, ok := m.attachments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) ListByOwner(ctx context.Context, ownerType string, ownerID uuid.UUID) ([]*Attachment, error) {
	var items []*Attachment
	for _, a := range m.attachments {
		if a.OwnerType == ownerType && a.OwnerID == ownerID {
			cp := *a
			items = append(items, &cp)
		}
	}
	return items, nil
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.attachments[id]; !ok {
		return ErrNotFound
	}
	delete(m.attachments, id)
	return nil
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

func newTestService() (*Service, *mockRepo, *blobstore.MemStore, *mockAuditRepo) {
	repo := newMockRepo()
	blobs := blobstore.NewMemStore()
	auditRepo := &mockAuditRepo{}
	recorder := audit.NewRecorder(auditRepo, zerolog.Nop())
	svc := NewService(repo, blobs, recorder, passthroughTx, zerolog.Nop())
	return svc, repo, blobs, auditRepo
}

func uploaderContext(actor string) context.Context {
	return context.WithValue(context.Background(), auth.ActorIDKey, actor)
}

func upload(t *testing.T, svc *Service, ownerType string, ownerID uuid.UUID, name, content string) *Attachment {
	t.Helper()
	a, err := svc.Upload(uploaderContext("dr-pop"), UploadInput{
		OwnerType: ownerType,
		OwnerID:   ownerID,
		Filename:  name,
		MimeType:  "text/plain",
		Size:      int64(len(content)),
		Content:   strings.NewReader(content),
	})
	require.NoError(t, err)
	return a
}

func TestUpload_StoresBlobAndRow(t *testing.T) {
	svc, repo, blobs, auditRepo := newTestService()
	ownerID := uuid.New()

	a := upload(t, svc, OwnerPatient, ownerID, "xray.txt", "image bytes")

	assert.Equal(t, "attachments/patient/"+ownerID.String()+"/"+a.ID.String()+"-xray.txt", a.StoragePath)
	require.NotNil(t, a.UploadedBy)
	assert.Equal(t, "dr-pop", *a.UploadedBy)

	rc, err := blobs.Get(context.Background(), a.StoragePath)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "image bytes", string(data))

	assert.Len(t, repo.attachments, 1)
	require.Len(t, auditRepo.entries, 1)
	assert.Equal(t, audit.EntityAttachment, auditRepo.entries[0].EntityType)
	assert.Equal(t, audit.ActionCreated, auditRepo.entries[0].Action)
}

func TestUpload_UnknownOwnerTypeRejected(t *testing.T) {
	svc, repo, _, _ := newTestService()

	_, err := svc.Upload(context.Background(), UploadInput{
		OwnerType: "invoice",
		OwnerID:   uuid.New(),
		Filename:  "f.txt",
		Content:   strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, ErrInvalidOwner)
	assert.Empty(t, repo.attachments)
}

type spyStore struct {
	*blobstore.MemStore
	puts []string
}

func (s *spyStore) Put(ctx context.Context, path string, r io.Reader) error {
	s.puts = append(s.puts, path)
	return s.MemStore.Put(ctx, path, r)
}

func TestUpload_FailedInsertCleansBlob(t *testing.T) {
	repo := newMockRepo()
	repo.insertErr = errors.New("boom")
	blobs := &spyStore{MemStore: blobstore.NewMemStore()}
	recorder := audit.NewRecorder(&mockAuditRepo{}, zerolog.Nop())
	svc := NewService(repo, blobs, recorder, passthroughTx, zerolog.Nop())

	_, err := svc.Upload(context.Background(), UploadInput{
		OwnerType: OwnerEncounter,
		OwnerID:   uuid.New(),
		Filename:  "f.txt",
		Content:   strings.NewReader("x"),
	})
	require.Error(t, err)

	require.Len(t, blobs.puts, 1)
	_, getErr := blobs.Get(context.Background(), blobs.puts[0])
	assert.ErrorIs(t, getErr, blobstore.ErrNotFound, "no blob may survive a failed insert")
}

func TestDownload_StreamsOriginalContent(t *testing.T) {
	svc, _, _, _ := newTestService()
	a := upload(t, svc, OwnerTreatment, uuid.New(), "note.txt", "hello")

	got, rc, err := svc.Download(context.Background(), a.ID)
	require.NoError(t, err)
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "note.txt", got.Filename)
}

func TestDelete_RemovesBlobThenRow(t *testing.T) {
	svc, repo, blobs, auditRepo := newTestService()
	a := upload(t, svc, OwnerPatient, uuid.New(), "f.txt", "x")

	require.NoError(t, svc.Delete(context.Background(), a.ID))

	_, err := blobs.Get(context.Background(), a.StoragePath)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
	assert.Empty(t, repo.attachments)

	last := auditRepo.entries[len(auditRepo.entries)-1]
	assert.Equal(t, audit.ActionDeleted, last.Action)
}

func TestDelete_MissingBlobStillRemovesRow(t *testing.T) {
	svc, repo, blobs, _ := newTestService()
	a := upload(t, svc, OwnerPatient, uuid.New(), "f.txt", "x")

	require.NoError(t, blobs.Delete(context.Background(), a.StoragePath))
	require.NoError(t, svc.Delete(context.Background(), a.ID))
	assert.Empty(t, repo.attachments)
}

func TestListByOwner_FiltersByOwner(t *testing.T) {
	svc, _, _, _ := newTestService()
	owner := uuid.New()

	upload(t, svc, OwnerPatient, owner, "a.txt", "1")
	upload(t, svc, OwnerPatient, owner, "b.txt", "2")
	upload(t, svc, OwnerPatient, uuid.New(), "c.txt", "3")
	upload(t, svc, OwnerEncounter, owner, "d.txt", "4")

	items, err := svc.ListByOwner(context.Background(), OwnerPatient, owner)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
