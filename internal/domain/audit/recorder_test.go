package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Crissavino/medical-dental-history/internal/platform/auth"
)

type mockRepo struct {
	entries []*Entry
}

func (m *mockRepo) Insert(ctx context.Context, e *Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Search(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	return m.entries, len(m.entries), nil
}

func actorContext(userID, ip string) context.Context {
	ctx := context.WithValue(context.Background(), auth.ActorIDKey, userID)
	return context.WithValue(ctx, auth.ClientIPKey, ip)
}

func TestRecorder_Created(t *testing.T) {
	repo := &mockRepo{}
	rec := NewRecorder(repo, zerolog.Nop())
	id := uuid.New()

	err := rec.Created(actorContext("user-1", "10.0.0.1"), EntityPatient, id, map[string]interface{}{
		"first_name": "Ana",
	})
	require.NoError(t, err)
	require.Len(t, repo.entries, 1)

	e := repo.entries[0]
	assert.Equal(t, EntityPatient, e.EntityType)
	assert.Equal(t, id, e.EntityID)
	assert.Equal(t, ActionCreated, e.Action)
	require.NotNil(t, e.UserID)
	assert.Equal(t, "user-1", *e.UserID)
	assert.Equal(t, "10.0.0.1", e.IPAddress)

	newState, ok := e.Metadata["new"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Ana", newState["first_name"])
}

func TestRecorder_Updated_OnlyChangedFields(t *testing.T) {
	repo := &mockRepo{}
	rec := NewRecorder(repo, zerolog.Nop())

	old := map[string]interface{}{"notes": "old note", "phone": "123", "updated_at": time.Now()}
	new := map[string]interface{}{"notes": "new note", "phone": "123", "updated_at": time.Now().Add(time.Minute)}

	err := rec.Updated(actorContext("user-1", ""), EntityPatient, uuid.New(), old, new)
	require.NoError(t, err)
	require.Len(t, repo.entries, 1)

	meta := repo.entries[0].Metadata
	changedNew := meta["new"].(map[string]interface{})
	changedOld := meta["old"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"notes": "new note"}, changedNew)
	assert.Equal(t, map[string]interface{}{"notes": "old note"}, changedOld)
}

func TestRecorder_Updated_NoChanges(t *testing.T) {
	repo := &mockRepo{}
	rec := NewRecorder(repo, zerolog.Nop())

	old := map[string]interface{}{"notes": "same", "updated_at": time.Now()}
	new := map[string]interface{}{"notes": "same", "updated_at": time.Now().Add(time.Hour)}

	err := rec.Updated(context.Background(), EntityPatient, uuid.New(), old, new)
	require.NoError(t, err)
	assert.Empty(t, repo.entries, "timestamp-only update must not produce an entry")
}

func TestRecorder_Deleted(t *testing.T) {
	repo := &mockRepo{}
	rec := NewRecorder(repo, zerolog.Nop())

	err := rec.Deleted(context.Background(), EntityEncounter, uuid.New(), map[string]interface{}{
		"status": "completed",
	})
	require.NoError(t, err)
	require.Len(t, repo.entries, 1)

	e := repo.entries[0]
	assert.Equal(t, ActionDeleted, e.Action)
	assert.Nil(t, e.UserID, "system action carries no user id")
	oldState := e.Metadata["old"].(map[string]interface{})
	assert.Equal(t, "completed", oldState["status"])
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name    string
		old     map[string]interface{}
		new     map[string]interface{}
		wantOld map[string]interface{}
		wantNew map[string]interface{}
	}{
		{
			name:    "single change",
			old:     map[string]interface{}{"a": 1, "b": "x"},
			new:     map[string]interface{}{"a": 2, "b": "x"},
			wantOld: map[string]interface{}{"a": 1},
			wantNew: map[string]interface{}{"a": 2},
		},
		{
			name:    "field added",
			old:     map[string]interface{}{"a": 1},
			new:     map[string]interface{}{"a": 1, "b": "new"},
			wantOld: map[string]interface{}{},
			wantNew: map[string]interface{}{"b": "new"},
		},
		{
			name:    "field removed",
			old:     map[string]interface{}{"a": 1, "b": "gone"},
			new:     map[string]interface{}{"a": 1},
			wantOld: map[string]interface{}{"b": "gone"},
			wantNew: map[string]interface{}{},
		},
		{
			name:    "updated_at ignored",
			old:     map[string]interface{}{"updated_at": "2024-01-01"},
			new:     map[string]interface{}{"updated_at": "2024-06-01"},
			wantOld: map[string]interface{}{},
			wantNew: map[string]interface{}{},
		},
		{
			name:    "nested values compared by content",
			old:     map[string]interface{}{"tags": []string{"a"}},
			new:     map[string]interface{}{"tags": []string{"a"}},
			wantOld: map[string]interface{}{},
			wantNew: map[string]interface{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotOld, gotNew := Diff(tt.old, tt.new)
			assert.Equal(t, tt.wantOld, gotOld)
			assert.Equal(t, tt.wantNew, gotNew)
		})
	}
}
