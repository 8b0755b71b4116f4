package copies

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

const copyColumns = `id, book_id, status, shelf, created_at`

func (r *PostgresRepository) scanRow(row interface{ Scan(dest ...any) error }) (*models.Copy, error) {
	c := &models.Copy{}
	err := row.Scan(&c.ID, &c.BookID, &c.Status, &c.Shelf, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Create(ctx context.Context, copy *models.Copy) (*models.Copy, error) {
	query := `INSERT INTO copies (id, book_id, status, shelf, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query, copy.ID, copy.BookID, copy.Status, copy.Shelf, copy.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return copy, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Copy, error) {
	query := `SELECT ` + copyColumns + ` FROM copies WHERE id = $1`
	return r.scanRow(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ListByBook(ctx context.Context, bookID string) ([]*models.Copy, error) {
	query := `SELECT ` + copyColumns + ` FROM copies WHERE book_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, bookID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var result []*models.Copy
	for rows.Next() {
		c, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// UpdateStatusCAS relies on the WHERE clause for atomicity: zero affected
// rows means either the copy vanished or somebody else changed its status
// first.
func (r *PostgresRepository) UpdateStatusCAS(ctx context.Context, id string, from, to models.CopyStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE copies SET status = $3 WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, getErr := r.GetByID(ctx, id); errors.Is(getErr, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return common.ErrConflict
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM copies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM copies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) CountByStatus(ctx context.Context, status models.CopyStatus) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM copies WHERE status = $1`, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	return n, nil
}
