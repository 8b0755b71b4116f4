package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

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

const bookColumns = `id, title, author, isbn, category, price, created_at`

func (r *PostgresRepository) scanRow(row interface{ Scan(dest ...any) error }) (*models.Book, error) {
	b := &models.Book{}
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Category, &b.Price, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) Create(ctx context.Context, book *models.Book) (*models.Book, error) {
	query := `INSERT INTO books (id, title, author, isbn, category, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		book.ID, book.Title, book.Author, book.ISBN, book.Category, book.Price, book.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return book, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`
	return r.scanRow(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Book, error) {
	return r.queryMany(ctx, `SELECT `+bookColumns+` FROM books ORDER BY title`)
}

// Search builds its SQL dynamically from the optional filter fields.
func (r *PostgresRepository) Search(ctx context.Context, filter SearchFilter) ([]*models.Book, error) {
	stmt := goqu.Dialect("postgres").
		From("books").
		Select("id", "title", "author", "isbn", "category", "price", "created_at").
		Order(goqu.I("title").Asc())

	if filter.Title != "" {
		stmt = stmt.Where(goqu.I("title").ILike("%" + filter.Title + "%"))
	}
	if filter.Author != "" {
		stmt = stmt.Where(goqu.I("author").ILike("%" + filter.Author + "%"))
	}
	if filter.Category != "" {
		stmt = stmt.Where(goqu.I("category").ILike("%" + filter.Category + "%"))
	}

	query, args, err := stmt.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("error building search query: %w", err)
	}

	return r.queryMany(ctx, query, args...)
}

func (r *PostgresRepository) queryMany(ctx context.Context, query string, args ...any) ([]*models.Book, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var result []*models.Book
	for rows.Next() {
		b, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, book *models.Book) error {
	query := `UPDATE books SET title = $2, author = $3, isbn = $4, category = $5, price = $6
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		book.ID, book.Title, book.Author, book.ISBN, book.Category, book.Price)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
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
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	return n, nil
}
