package fines

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/dbx"
	"github.com/dmitrijs2005/libcirc/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const fineColumns = `id, record_id, identity_id, fine_type, amount, status, created_at`

func (r *PostgresRepository) scanRow(row interface{ Scan(dest ...any) error }) (*models.Fine, error) {
	f := &models.Fine{}
	err := row.Scan(&f.ID, &f.RecordID, &f.IdentityID, &f.Type, &f.Amount, &f.Status, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) Create(ctx context.Context, fine *models.Fine) (*models.Fine, error) {
	query := `INSERT INTO fines (id, record_id, identity_id, fine_type, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		fine.ID, fine.RecordID, fine.IdentityID, fine.Type, fine.Amount, fine.Status, fine.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return fine, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Fine, error) {
	query := `SELECT ` + fineColumns + ` FROM fines WHERE id = $1`
	return r.scanRow(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) Update(ctx context.Context, fine *models.Fine) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE fines SET amount = $2, status = $3 WHERE id = $1`,
		fine.ID, fine.Amount, fine.Status)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) queryMany(ctx context.Context, query string, args ...any) ([]*models.Fine, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var result []*models.Fine
	for rows.Next() {
		f, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) ListByIdentity(ctx context.Context, identityID string) ([]*models.Fine, error) {
	query := `SELECT ` + fineColumns + ` FROM fines WHERE identity_id = $1 ORDER BY created_at DESC`
	return r.queryMany(ctx, query, identityID)
}

func (r *PostgresRepository) ListByRecord(ctx context.Context, recordID string) ([]*models.Fine, error) {
	query := `SELECT ` + fineColumns + ` FROM fines WHERE record_id = $1 ORDER BY created_at DESC`
	return r.queryMany(ctx, query, recordID)
}

func (r *PostgresRepository) CountByStatus(ctx context.Context, status models.FineStatus) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM fines WHERE status = $1`, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	return n, nil
}
