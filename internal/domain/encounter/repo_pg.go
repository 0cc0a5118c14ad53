package encounter

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Crissavino/medical-dental-history/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type RepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) *RepoPG {
	return &RepoPG{pool: pool}
}

func (r *RepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const encounterCols = `id, patient_id, provider_id, occurred_at, status, notes,
	created_at, updated_at, deleted_at`

func scanEncounter(row pgx.Row) (*Encounter, error) {
	var e Encounter
	err := row.Scan(
		&e.ID, &e.PatientID, &e.ProviderID, &e.OccurredAt, &e.Status, &e.Notes,
		&e.CreatedAt, &e.UpdatedAt, &e.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *RepoPG) Insert(ctx context.Context, e *Encounter) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO encounters (id, patient_id, provider_id, occurred_at, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		e.ID, e.PatientID, e.ProviderID, e.OccurredAt, e.Status, e.Notes,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert encounter: %w", err)
	}
	return nil
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	q := fmt.Sprintf("SELECT %s FROM encounters WHERE id = $1 AND deleted_at IS NULL", encounterCols)
	e, err := scanEncounter(r.conn(ctx).QueryRow(ctx, q, id))
	if err != nil {
		return nil, err
	}
	e.Treatments, err = r.ListTreatments(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *RepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM encounters WHERE patient_id = $1 AND deleted_at IS NULL`, patientID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count encounters: %w", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM encounters
		WHERE patient_id = $1 AND deleted_at IS NULL
		ORDER BY occurred_at DESC LIMIT $2 OFFSET $3`, encounterCols)
	rows, err := r.conn(ctx).Query(ctx, q, patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list encounters: %w", err)
	}
	defer rows.Close()

	var items []*Encounter
	for rows.Next() {
		e, err := scanEncounter(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, e := range items {
		e.Treatments, err = r.ListTreatments(ctx, e.ID)
		if err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

func (r *RepoPG) Update(ctx context.Context, e *Encounter) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE encounters SET provider_id = $2, occurred_at = $3, status = $4,
			notes = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		e.ID, e.ProviderID, e.OccurredAt, e.Status, e.Notes,
	)
	if err != nil {
		return fmt.Errorf("update encounter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE encounters SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id,
	)
	if err != nil {
		return fmt.Errorf("delete encounter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const treatmentCols = `id, encounter_id, tooth, procedure, description, surface,
	notes, cost, status, created_at, updated_at`

func scanTreatment(row pgx.Row) (*Treatment, error) {
	var t Treatment
	err := row.Scan(
		&t.ID, &t.EncounterID, &t.Tooth, &t.Procedure, &t.Description, &t.Surface,
		&t.Notes, &t.Cost, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *RepoPG) ListTreatments(ctx context.Context, encounterID uuid.UUID) ([]Treatment, error) {
	q := fmt.Sprintf("SELECT %s FROM treatments WHERE encounter_id = $1 ORDER BY created_at, id", treatmentCols)
	rows, err := r.conn(ctx).Query(ctx, q, encounterID)
	if err != nil {
		return nil, fmt.Errorf("list treatments: %w", err)
	}
	defer rows.Close()

	items := []Treatment{}
	for rows.Next() {
		t, err := scanTreatment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *t)
	}
	return items, rows.Err()
}

func (r *RepoPG) InsertTreatment(ctx context.Context, t *Treatment) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO treatments (id, encounter_id, tooth, procedure, description,
			surface, notes, cost, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		t.ID, t.EncounterID, t.Tooth, t.Procedure, t.Description,
		t.Surface, t.Notes, t.Cost, t.Status,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert treatment: %w", err)
	}
	return nil
}

func (r *RepoPG) UpdateTreatment(ctx context.Context, t *Treatment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE treatments SET tooth = $2, procedure = $3, description = $4,
			surface = $5, notes = $6, cost = $7, status = $8, updated_at = NOW()
		WHERE id = $1 AND encounter_id = $9`,
		t.ID, t.Tooth, t.Procedure, t.Description,
		t.Surface, t.Notes, t.Cost, t.Status, t.EncounterID,
	)
	if err != nil {
		return fmt.Errorf("update treatment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RepoPG) DeleteTreatment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM treatments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete treatment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
