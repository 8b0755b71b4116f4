package identities

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

const identityColumns = `id, username, password_hash, role, status,
	current_borrowed_count, total_borrowed_count, total_fines_owed, online, created_at`

func (r *PostgresRepository) scanRow(row interface{ Scan(dest ...any) error }) (*models.Identity, error) {
	i := &models.Identity{}
	err := row.Scan(&i.ID, &i.Username, &i.PasswordHash, &i.Role, &i.Status,
		&i.CurrentBorrowedCount, &i.TotalBorrowedCount, &i.TotalFinesOwed, &i.Online, &i.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return i, nil
}

func (r *PostgresRepository) Create(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	query := `INSERT INTO identities
		(id, username, password_hash, role, status, current_borrowed_count,
		 total_borrowed_count, total_fines_owed, online, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		identity.ID, identity.Username, identity.PasswordHash, identity.Role, identity.Status,
		identity.CurrentBorrowedCount, identity.TotalBorrowedCount, identity.TotalFinesOwed,
		identity.Online, identity.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return identity, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`
	return r.scanRow(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE username = $1`
	return r.scanRow(r.db.QueryRowContext(ctx, query, username))
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var result []*models.Identity
	for rows.Next() {
		i, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, i)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, identity *models.Identity) error {
	query := `UPDATE identities SET
		username = $2, password_hash = $3, role = $4, status = $5,
		current_borrowed_count = $6, total_borrowed_count = $7,
		total_fines_owed = $8, online = $9
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		identity.ID, identity.Username, identity.PasswordHash, identity.Role, identity.Status,
		identity.CurrentBorrowedCount, identity.TotalBorrowedCount, identity.TotalFinesOwed,
		identity.Online)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) SetOnline(ctx context.Context, id string, online bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE identities SET online = $2 WHERE id = $1`, id, online)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ClearOnline(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE identities SET online = FALSE WHERE online`)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM identities WHERE status = 'ACTIVE'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	return n, nil
}
