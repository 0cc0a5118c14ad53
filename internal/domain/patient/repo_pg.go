package patient

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

const patientCols = `id, identifier, first_name, last_name, date_of_birth, gender,
	email, phone, address, city, county, cnp, notes, created_at, updated_at, deleted_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.Identifier, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender,
		&p.Email, &p.Phone, &p.Address, &p.City, &p.County, &p.CNP, &p.Notes,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Insert computes the next chart identifier from the maximum existing
// sequence number, soft-deleted rows included, and inserts the row.
// Identifier assignment is serialized on a transaction-scoped advisory
// lock, held until the surrounding transaction ends, so two concurrent
// registrations cannot read the same maximum. The unique constraint on
// identifier remains as the backstop.
func (r *RepoPG) Insert(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	if _, err := r.conn(ctx).Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext('patients.identifier'))`,
	); err != nil {
		return fmt.Errorf("lock identifier sequence: %w", err)
	}

	identifier, err := r.nextIdentifier(ctx)
	if err != nil {
		return err
	}
	p.Identifier = identifier

	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (id, identifier, first_name, last_name, date_of_birth,
			gender, email, phone, address, city, county, cnp, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`,
		p.ID, p.Identifier, p.FirstName, p.LastName, p.DateOfBirth,
		p.Gender, p.Email, p.Phone, p.Address, p.City, p.County, p.CNP, p.Notes,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *RepoPG) nextIdentifier(ctx context.Context) (string, error) {
	var maxSeq int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(MAX(CAST(SUBSTRING(identifier FROM 3) AS INTEGER)), 0)
		FROM patients`,
	).Scan(&maxSeq)
	if err != nil {
		return "", fmt.Errorf("compute next patient identifier: %w", err)
	}
	return fmt.Sprintf("P-%06d", maxSeq+1), nil
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	q := fmt.Sprintf("SELECT %s FROM patients WHERE id = $1 AND deleted_at IS NULL", patientCols)
	return scanPatient(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *RepoPG) GetByIdentifier(ctx context.Context, identifier string) (*Patient, error) {
	q := fmt.Sprintf("SELECT %s FROM patients WHERE identifier = $1 AND deleted_at IS NULL", patientCols)
	return scanPatient(r.conn(ctx).QueryRow(ctx, q, identifier))
}

func (r *RepoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET
			first_name = $2, last_name = $3, date_of_birth = $4, gender = $5,
			email = $6, phone = $7, address = $8, city = $9, county = $10,
			cnp = $11, notes = $12, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender,
		p.Email, p.Phone, p.Address, p.City, p.County, p.CNP, p.Notes,
	)
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id,
	)
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RepoPG) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	where := "WHERE deleted_at IS NULL"
	args := []interface{}{}
	if query != "" {
		where += ` AND (first_name ILIKE $1 OR last_name ILIKE $1 OR identifier ILIKE $1
			OR phone ILIKE $1 OR email ILIKE $1)`
		args = append(args, "%"+query+"%")
	}

	var total int
	countQ := fmt.Sprintf("SELECT COUNT(*) FROM patients %s", where)
	if err := r.conn(ctx).QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	q := fmt.Sprintf("SELECT %s FROM patients %s ORDER BY last_name, first_name LIMIT $%d OFFSET $%d",
		patientCols, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search patients: %w", err)
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
