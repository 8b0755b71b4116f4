package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/logging"
	"github.com/dmitrijs2005/libcirc/internal/server/models"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/books"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/repomanager"
)

func newTestService(t *testing.T) (*Service, repomanager.Store) {
	t.Helper()
	store := repomanager.NewMemoryStore()
	return NewService(store, nil, logging.NewDiscard()), store
}

func validParams() BookParams {
	return BookParams{
		Title:    "The Go Programming Language",
		Author:   "Donovan, Kernighan",
		ISBN:     "978-0134190440",
		Category: "programming",
		Price:    39.99,
	}
}

func TestCreateBook(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	book, err := s.CreateBook(ctx, validParams())
	require.NoError(t, err)
	assert.NotEmpty(t, book.ID)
	assert.Equal(t, 39.99, book.Price)

	t.Run("missing title", func(t *testing.T) {
		p := validParams()
		p.Title = ""
		_, err := s.CreateBook(ctx, p)
		require.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("negative price", func(t *testing.T) {
		p := validParams()
		p.Price = -1
		_, err := s.CreateBook(ctx, p)
		require.ErrorIs(t, err, common.ErrValidation)
	})
}

func TestSearchBooks(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.CreateBook(ctx, validParams())
	require.NoError(t, err)

	p := validParams()
	p.Title = "Learning SQL"
	p.Category = "databases"
	_, err = s.CreateBook(ctx, p)
	require.NoError(t, err)

	t.Run("by title fragment", func(t *testing.T) {
		got, err := s.SearchBooks(ctx, books.SearchFilter{Title: "go programming"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "The Go Programming Language", got[0].Title)
	})

	t.Run("by category", func(t *testing.T) {
		got, err := s.SearchBooks(ctx, books.SearchFilter{Category: "databases"})
		require.NoError(t, err)
		require.Len(t, got, 1)
	})

	t.Run("no filter returns everything", func(t *testing.T) {
		got, err := s.SearchBooks(ctx, books.SearchFilter{})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestUpdateBook(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	book, err := s.CreateBook(ctx, validParams())
	require.NoError(t, err)

	p := validParams()
	p.Price = 19.99
	updated, err := s.UpdateBook(ctx, book.ID, p)
	require.NoError(t, err)
	assert.Equal(t, 19.99, updated.Price)

	_, err = s.UpdateBook(ctx, "missing", p)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteBook(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	book, err := s.CreateBook(ctx, validParams())
	require.NoError(t, err)

	t.Run("refused while copies exist", func(t *testing.T) {
		_, err := s.AddCopy(ctx, book.ID, "A-1")
		require.NoError(t, err)

		err = s.DeleteBook(ctx, book.ID)
		require.ErrorIs(t, err, common.ErrValidation)
		assert.Contains(t, err.Error(), "still has")
	})

	t.Run("allowed once stock is retired", func(t *testing.T) {
		copies, err := s.ListCopies(ctx, book.ID)
		require.NoError(t, err)
		for _, c := range copies {
			require.NoError(t, s.store.Copies().Delete(ctx, c.ID))
		}

		require.NoError(t, s.DeleteBook(ctx, book.ID))
		_, err = s.GetBook(ctx, book.ID)
		require.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestAddCopy(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	book, err := s.CreateBook(ctx, validParams())
	require.NoError(t, err)

	c, err := s.AddCopy(ctx, book.ID, "B-7")
	require.NoError(t, err)
	assert.Equal(t, models.CopyAvailable, c.Status)
	assert.Equal(t, "B-7", c.Shelf)

	_, err = s.AddCopy(ctx, "missing-book", "B-7")
	require.ErrorIs(t, err, common.ErrNotFound)

	list, err := s.ListCopies(ctx, book.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
