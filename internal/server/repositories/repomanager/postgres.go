package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/libcirc/internal/dbx"
	"github.com/dmitrijs2005/libcirc/internal/server/migrations"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/books"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/copies"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/fines"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/identities"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/records"
)

// PostgresStore binds the repositories to a *sql.DB, or to a transaction
// when created through WithinTx.
type PostgresStore struct {
	db   *sql.DB // nil for tx-bound stores
	conn dbx.DBTX
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	s := &PostgresStore{db: db, conn: db}

	if err := s.runMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return s, nil
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, s.db, ".")
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) Identities() identities.Repository {
	return identities.NewPostgresRepository(s.conn)
}

func (s *PostgresStore) Books() books.Repository {
	return books.NewPostgresRepository(s.conn)
}

func (s *PostgresStore) Copies() copies.Repository {
	return copies.NewPostgresRepository(s.conn)
}

func (s *PostgresStore) Records() records.Repository {
	return records.NewPostgresRepository(s.conn)
}

func (s *PostgresStore) Fines() fines.Repository {
	return fines.NewPostgresRepository(s.conn)
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, st Store) error) error {
	if s.db == nil {
		// already inside a transaction
		return fn(ctx, s)
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, &PostgresStore{conn: tx})
	})
}
