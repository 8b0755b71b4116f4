package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/logging"
	"github.com/dmitrijs2005/libcirc/internal/server/circulation"
	"github.com/dmitrijs2005/libcirc/internal/server/models"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/repomanager"
)

func newTestService(t *testing.T) (*Service, repomanager.Store) {
	t.Helper()
	store := repomanager.NewMemoryStore()
	return NewService(store, nil, nil, logging.NewDiscard()), store
}

func TestRegister(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	ident, err := s.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, models.RolePatron, ident.Role)
	assert.Equal(t, models.IdentityActive, ident.Status)
	assert.NotEqual(t, "s3cret", ident.PasswordHash)

	t.Run("duplicate username", func(t *testing.T) {
		_, err := s.Register(ctx, "alice", "other")
		require.ErrorIs(t, err, common.ErrValidation)
		assert.Contains(t, err.Error(), "already taken")
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := s.Register(ctx, "", "pw")
		require.ErrorIs(t, err, common.ErrValidation)
		_, err = s.Register(ctx, "bob", "")
		require.ErrorIs(t, err, common.ErrValidation)
	})
}

func TestCreateUser_Roles(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	admin, err := s.CreateUser(ctx, "root", "pw", models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	_, err = s.CreateUser(ctx, "weird", "pw", models.Role("SUPERVISOR"))
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestVerifyCredentials(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	created, err := s.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		ident, err := s.VerifyCredentials(ctx, "alice", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, created.ID, ident.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := s.VerifyCredentials(ctx, "alice", "wrong")
		require.ErrorIs(t, err, common.ErrAuthentication)
	})

	t.Run("unknown user maps to the same error", func(t *testing.T) {
		_, err := s.VerifyCredentials(ctx, "nobody", "s3cret")
		require.ErrorIs(t, err, common.ErrAuthentication)
	})

	t.Run("locked account", func(t *testing.T) {
		locked := models.IdentityLocked
		_, err := s.Update(ctx, created.ID, UpdateParams{Status: &locked})
		require.NoError(t, err)

		_, err = s.VerifyCredentials(ctx, "alice", "s3cret")
		require.ErrorIs(t, err, common.ErrAuthentication)
		assert.Contains(t, err.Error(), "locked")
	})
}

func TestUpdate(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	ident, err := s.Register(ctx, "alice", "pw")
	require.NoError(t, err)
	_, err = s.Register(ctx, "bob", "pw")
	require.NoError(t, err)

	t.Run("rename", func(t *testing.T) {
		name := "alice2"
		updated, err := s.Update(ctx, ident.ID, UpdateParams{Username: &name})
		require.NoError(t, err)
		assert.Equal(t, "alice2", updated.Username)
	})

	t.Run("rename to taken name", func(t *testing.T) {
		name := "bob"
		_, err := s.Update(ctx, ident.ID, UpdateParams{Username: &name})
		require.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("password change keeps login working", func(t *testing.T) {
		pw := "newpw"
		_, err := s.Update(ctx, ident.ID, UpdateParams{Password: &pw})
		require.NoError(t, err)
		_, err = s.VerifyCredentials(ctx, "alice2", "newpw")
		require.NoError(t, err)
	})

	t.Run("bad role rejected", func(t *testing.T) {
		role := models.Role("WIZARD")
		_, err := s.Update(ctx, ident.ID, UpdateParams{Role: &role})
		require.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.Update(ctx, "missing", UpdateParams{})
		require.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()

	ident, err := s.Register(ctx, "alice", "pw")
	require.NoError(t, err)

	t.Run("refused while records are open", func(t *testing.T) {
		_, err := store.Records().Create(ctx, &models.BorrowRecord{
			ID:         uuid.NewString(),
			IdentityID: ident.ID,
			BookID:     uuid.NewString(),
			CopyID:     uuid.NewString(),
			BorrowDate: time.Now(),
			Status:     models.RecordBorrowed,
		})
		require.NoError(t, err)

		err = s.Delete(ctx, ident.ID)
		require.ErrorIs(t, err, common.ErrValidation)
		assert.Contains(t, err.Error(), "still holds")
	})

	t.Run("allowed once everything is closed", func(t *testing.T) {
		records, err := store.Records().ListNonTerminalByIdentity(ctx, ident.ID)
		require.NoError(t, err)
		for _, rec := range records {
			rec.Status = models.RecordReturned
			require.NoError(t, store.Records().Update(ctx, rec))
		}

		require.NoError(t, s.Delete(ctx, ident.ID))
		_, err = s.GetByID(ctx, ident.ID)
		require.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestUpdate_DoesNotClobberCirculationCounters(t *testing.T) {
	store := repomanager.NewMemoryStore()
	engine := circulation.NewEngine(store, nil, logging.NewDiscard())
	s := NewService(store, nil, engine, logging.NewDiscard())
	ctx := context.Background()

	ident, err := s.Register(ctx, "alice", "pw")
	require.NoError(t, err)

	book := &models.Book{ID: uuid.NewString(), Title: "t", Author: "a", Price: 10, CreatedAt: time.Now()}
	_, err = store.Books().Create(ctx, book)
	require.NoError(t, err)
	cp := &models.Copy{ID: uuid.NewString(), BookID: book.ID, Status: models.CopyAvailable, CreatedAt: time.Now()}
	_, err = store.Copies().Create(ctx, cp)
	require.NoError(t, err)

	// hammer admin updates while the same account borrows and returns; an
	// update writes the whole row back, so without shared locking it can
	// revert the counters the engine just changed
	done := make(chan struct{})
	var hammer sync.WaitGroup
	hammer.Add(1)
	go func() {
		defer hammer.Done()
		status := models.IdentityActive
		for {
			select {
			case <-done:
				return
			default:
			}
			if _, err := s.Update(ctx, ident.ID, UpdateParams{Status: &status}); err != nil {
				t.Errorf("update failed: %v", err)
				return
			}
		}
	}()

	const rounds = 200
	for i := 0; i < rounds; i++ {
		rec, err := engine.Borrow(ctx, ident.ID, book.ID, cp.ID)
		require.NoError(t, err)
		_, err = engine.Return(ctx, rec.ID)
		require.NoError(t, err)
	}
	close(done)
	hammer.Wait()

	after, err := store.Identities().GetByID(ctx, ident.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.CurrentBorrowedCount)
	assert.Equal(t, rounds, after.TotalBorrowedCount)
}

func TestDelete_WaitsForCirculation(t *testing.T) {
	store := repomanager.NewMemoryStore()
	engine := circulation.NewEngine(store, nil, logging.NewDiscard())
	s := NewService(store, nil, engine, logging.NewDiscard())
	ctx := context.Background()

	ident, err := s.Register(ctx, "alice", "pw")
	require.NoError(t, err)

	// while the engine holds the account, the open-records check must wait
	// instead of racing a borrow in flight
	unlock := engine.LockIdentity(ident.ID)
	done := make(chan error, 1)
	go func() { done <- s.Delete(ctx, ident.ID) }()

	select {
	case <-done:
		t.Fatal("delete completed while the account was locked")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	require.NoError(t, <-done)
}
