package audit

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Crissavino/medical-dental-history/internal/platform/auth"
)

// Tracked entity type discriminators, shared with the attachment owner enum.
const (
	EntityPatient    = "patient"
	EntityAnamnesis  = "anamnesis_version"
	EntityEncounter  = "encounter"
	EntityTreatment  = "treatment"
	EntityAttachment = "attachment"
)

// updatedAtField is excluded from diffs; touching the row timestamp alone is
// not a change worth recording.
const updatedAtField = "updated_at"

// Recorder writes audit entries as a synchronous side effect of entity
// mutations. Services call it inside the same transaction as the mutation,
// so an entry never outlives a rolled-back write.
type Recorder struct {
	repo   Repository
	logger zerolog.Logger
}

func NewRecorder(repo Repository, logger zerolog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Created records a creation with the full new state as metadata.
func (r *Recorder) Created(ctx context.Context, entityType string, entityID uuid.UUID, state map[string]interface{}) error {
	return r.insert(ctx, entityType, entityID, ActionCreated, map[string]interface{}{"new": state})
}

// Updated diffs old against new and records only the changed fields. When
// nothing changed besides the row timestamp, no entry is written.
func (r *Recorder) Updated(ctx context.Context, entityType string, entityID uuid.UUID, old, new map[string]interface{}) error {
	changedOld, changedNew := Diff(old, new)
	if len(changedNew) == 0 && len(changedOld) == 0 {
		return nil
	}
	return r.insert(ctx, entityType, entityID, ActionUpdated, map[string]interface{}{
		"old": changedOld,
		"new": changedNew,
	})
}

// Deleted records a deletion with the full prior state as metadata.
func (r *Recorder) Deleted(ctx context.Context, entityType string, entityID uuid.UUID, state map[string]interface{}) error {
	return r.insert(ctx, entityType, entityID, ActionDeleted, map[string]interface{}{"old": state})
}

func (r *Recorder) insert(ctx context.Context, entityType string, entityID uuid.UUID, action Action, metadata map[string]interface{}) error {
	e := &Entry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Metadata:   metadata,
		IPAddress:  auth.ClientIPFromContext(ctx),
	}
	if uid := auth.ActorIDFromContext(ctx); uid != "" {
		e.UserID = &uid
	}

	if err := r.repo.Insert(ctx, e); err != nil {
		return err
	}

	r.logger.Debug().
		Str("entity_type", entityType).
		Str("entity_id", entityID.String()).
		Str("action", string(action)).
		Msg("audit entry recorded")
	return nil
}

// Diff returns the old and new values of every field whose value differs
// between the two snapshots, the row timestamp excluded. Fields absent from
// one side are treated as changed.
func Diff(old, new map[string]interface{}) (changedOld, changedNew map[string]interface{}) {
	changedOld = make(map[string]interface{})
	changedNew = make(map[string]interface{})

	for k, nv := range new {
		if k == updatedAtField {
			continue
		}
		ov, ok := old[k]
		if !ok || !jsonEqual(ov, nv) {
			if ok {
				changedOld[k] = ov
			}
			changedNew[k] = nv
		}
	}
	for k, ov := range old {
		if k == updatedAtField {
			continue
		}
		if _, ok := new[k]; !ok {
			changedOld[k] = ov
		}
	}
	return changedOld, changedNew
}

// jsonEqual compares two values by their JSON encoding, so time.Time,
// numeric widths and nested structures compare by content.
func jsonEqual(a, b interface{}) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
