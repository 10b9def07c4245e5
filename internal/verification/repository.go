package verification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thaipay/slipverify/internal/emvqr"
)

// ErrNotFound indicates no verification record exists for the identifier.
var ErrNotFound = errors.New("verification record not found")

// Repository persists verification audit records.
type Repository interface {
	Create(ctx context.Context, record Record) error
	Get(ctx context.Context, id string) (Record, error)
}

// PostgresRepository stores records in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts an audit record.
func (r *PostgresRepository) Create(ctx context.Context, record Record) error {
	recordID, err := uuid.Parse(record.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO verification_records (id, order_ref, payload_hash, status, reason, expected_amount, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		recordID, record.OrderRef, record.PayloadHash, string(record.Status), record.Reason, record.ExpectedAmount, record.CreatedAt.UTC())
	return err
}

// Get fetches an audit record by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Record, error) {
	recordID, err := uuid.Parse(id)
	if err != nil {
		return Record{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, order_ref, payload_hash, status, reason, expected_amount, created_at
        FROM verification_records WHERE id = $1`, recordID)

	var rec Record
	var idVal uuid.UUID
	var status string
	var createdAt time.Time
	if err := row.Scan(&idVal, &rec.OrderRef, &rec.PayloadHash, &status, &rec.Reason, &rec.ExpectedAmount, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	rec.ID = idVal.String()
	rec.Status = emvqr.VerdictStatus(status)
	rec.CreatedAt = createdAt.UTC()
	return rec, nil
}
