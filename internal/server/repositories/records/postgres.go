package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

const recordColumns = `id, identity_id, book_id, copy_id, borrow_date, expected_return_date,
	actual_return_date, status, extended, fine_amount, fine_paid, notes, staff_forced`

func (r *PostgresRepository) scanRow(row interface{ Scan(dest ...any) error }) (*models.BorrowRecord, error) {
	rec := &models.BorrowRecord{}
	var actual sql.NullTime
	err := row.Scan(&rec.ID, &rec.IdentityID, &rec.BookID, &rec.CopyID, &rec.BorrowDate,
		&rec.ExpectedReturnDate, &actual, &rec.Status, &rec.Extended,
		&rec.FineAmount, &rec.FinePaid, &rec.Notes, &rec.StaffForced)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	if actual.Valid {
		t := actual.Time
		rec.ActualReturnDate = &t
	}
	return rec, nil
}

func (r *PostgresRepository) Create(ctx context.Context, record *models.BorrowRecord) (*models.BorrowRecord, error) {
	query := `INSERT INTO borrow_records
		(id, identity_id, book_id, copy_id, borrow_date, expected_return_date,
		 actual_return_date, status, extended, fine_amount, fine_paid, notes, staff_forced)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.IdentityID, record.BookID, record.CopyID, record.BorrowDate,
		record.ExpectedReturnDate, nullTime(record.ActualReturnDate), record.Status,
		record.Extended, record.FineAmount, record.FinePaid, record.Notes, record.StaffForced)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return record, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.BorrowRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM borrow_records WHERE id = $1`
	return r.scanRow(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) Update(ctx context.Context, record *models.BorrowRecord) error {
	query := `UPDATE borrow_records SET
		expected_return_date = $2, actual_return_date = $3, status = $4, extended = $5,
		fine_amount = $6, fine_paid = $7, notes = $8, staff_forced = $9
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		record.ID, record.ExpectedReturnDate, nullTime(record.ActualReturnDate), record.Status,
		record.Extended, record.FineAmount, record.FinePaid, record.Notes, record.StaffForced)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) queryMany(ctx context.Context, query string, args ...any) ([]*models.BorrowRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var result []*models.BorrowRecord
	for rows.Next() {
		rec, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) ListByIdentity(ctx context.Context, identityID string) ([]*models.BorrowRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM borrow_records
		WHERE identity_id = $1 ORDER BY borrow_date DESC`
	return r.queryMany(ctx, query, identityID)
}

func (r *PostgresRepository) ListNonTerminalByIdentity(ctx context.Context, identityID string) ([]*models.BorrowRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM borrow_records
		WHERE identity_id = $1 AND status IN ('BORROWED', 'OVERDUE') ORDER BY borrow_date`
	return r.queryMany(ctx, query, identityID)
}

func (r *PostgresRepository) ListDueBefore(ctx context.Context, t time.Time) ([]*models.BorrowRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM borrow_records
		WHERE status = 'BORROWED' AND expected_return_date < $1`
	return r.queryMany(ctx, query, t)
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.BorrowRecord, error) {
	return r.queryMany(ctx, `SELECT `+recordColumns+` FROM borrow_records ORDER BY borrow_date DESC`)
}

func (r *PostgresRepository) CountByStatus(ctx context.Context, status models.RecordStatus) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM borrow_records WHERE status = $1`, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	return n, nil
}
