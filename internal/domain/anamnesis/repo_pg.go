package anamnesis

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

const uniqueViolation = "23505"

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

const versionCols = `id, patient_id, version, language, form_data,
	consent_given, consent_given_at, consent_ip, signature_data,
	signed_by, signed_at, clinician_signature, recorded_by, created_at`

func scanVersion(row pgx.Row) (*Version, error) {
	var v Version
	err := row.Scan(
		&v.ID, &v.PatientID, &v.Version, &v.Language, &v.FormData,
		&v.ConsentGiven, &v.ConsentGivenAt, &v.ConsentIP, &v.SignatureData,
		&v.SignedBy, &v.SignedAt, &v.ClinicianSignature, &v.RecordedBy, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// Insert serializes version assignment per patient two ways: the patient
// row is locked for the read-max-then-insert sequence, and the unique
// (patient_id, version) constraint catches anything that slips through,
// with one retry before giving up with ErrVersionConflict. Each attempt
// runs under its own savepoint; a constraint violation would otherwise
// abort the caller's transaction and poison the retry.
func (r *RepoPG) Insert(ctx context.Context, v *Version) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}

	explicit := v.Version != 0
	for attempt := 0; attempt < 2; attempt++ {
		if !explicit {
			next, err := r.nextVersion(ctx, v.PatientID)
			if err != nil {
				return err
			}
			v.Version = next
		}

		err := r.insertRow(ctx, v)
		if err == nil {
			return nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if explicit || attempt == 1 {
				return ErrVersionConflict
			}
			continue
		}
		return fmt.Errorf("insert anamnesis version: %w", err)
	}
	return ErrVersionConflict
}

func (r *RepoPG) insertRow(ctx context.Context, v *Version) error {
	spCtx, sp, err := db.WithTx(ctx)
	if err != nil {
		return err
	}

	err = r.conn(spCtx).QueryRow(spCtx, `
		INSERT INTO anamnesis_versions (id, patient_id, version, language, form_data,
			consent_given, consent_given_at, consent_ip, signature_data, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		v.ID, v.PatientID, v.Version, v.Language, v.FormData,
		v.ConsentGiven, v.ConsentGivenAt, v.ConsentIP, v.SignatureData, v.RecordedBy,
	).Scan(&v.CreatedAt)
	if err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}

func (r *RepoPG) nextVersion(ctx context.Context, patientID uuid.UUID) (int, error) {
	// Lock the patient row so concurrent submissions for the same patient
	// serialize here. Different patients never contend.
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT true FROM patients WHERE id = $1 FOR UPDATE`, patientID,
	).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("lock patient row: %w", err)
	}

	var next int
	err = r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) + 1 FROM anamnesis_versions WHERE patient_id = $1`,
		patientID,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("compute next version: %w", err)
	}
	return next, nil
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Version, error) {
	q := fmt.Sprintf("SELECT %s FROM anamnesis_versions WHERE id = $1", versionCols)
	return scanVersion(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *RepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Version, error) {
	q := fmt.Sprintf("SELECT %s FROM anamnesis_versions WHERE patient_id = $1 ORDER BY version DESC", versionCols)
	rows, err := r.conn(ctx).Query(ctx, q, patientID)
	if err != nil {
		return nil, fmt.Errorf("list anamnesis versions: %w", err)
	}
	defer rows.Close()

	var items []*Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func (r *RepoPG) LatestByPatient(ctx context.Context, patientID uuid.UUID) (*Version, error) {
	q := fmt.Sprintf("SELECT %s FROM anamnesis_versions WHERE patient_id = $1 ORDER BY version DESC LIMIT 1", versionCols)
	return scanVersion(r.conn(ctx).QueryRow(ctx, q, patientID))
}

func (r *RepoPG) Sign(ctx context.Context, id uuid.UUID, clinicianID uuid.UUID, signature string) (*Version, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE anamnesis_versions
		SET signed_by = $2, signed_at = NOW(), clinician_signature = $3
		WHERE id = $1 AND signed_by IS NULL`,
		id, clinicianID, signature,
	)
	if err != nil {
		return nil, fmt.Errorf("sign anamnesis version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish missing from already signed.
		v, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if v.Signed() {
			return nil, ErrAlreadySigned
		}
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}
