package staff

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

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Member, error) {
	var m Member
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, name, email, role, signature_data, created_at, updated_at
		FROM staff WHERE id = $1`, id,
	).Scan(&m.ID, &m.Name, &m.Email, &m.Role, &m.SignatureData, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get staff member: %w", err)
	}
	return &m, nil
}

func (r *RepoPG) SetSignature(ctx context.Context, id uuid.UUID, signature string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE staff SET signature_data = $2, updated_at = NOW()
		WHERE id = $1 AND signature_data IS NULL`, id, signature,
	)
	if err != nil {
		return fmt.Errorf("set staff signature: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the member does not exist or already has a signature;
		// callers read the profile first, so treat this as already set.
		return nil
	}
	return nil
}
