// Package identity implements account management: registration, credential
// verification and the admin user CRUD.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/logging"
	"github.com/dmitrijs2005/libcirc/internal/protocol"
	"github.com/dmitrijs2005/libcirc/internal/server/auth"
	"github.com/dmitrijs2005/libcirc/internal/server/models"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/repomanager"
)

// Publisher receives change notifications after successful mutations.
type Publisher interface {
	Publish(event string, payload any)
}

// KeyLocker serializes identity mutations with the circulation engine. An
// admin update rewrites the whole identity row, so without this a concurrent
// borrow or return on the same account could lose its counter changes.
type KeyLocker interface {
	LockIdentity(id string) func()
}

type Service struct {
	store  repomanager.Store
	pub    Publisher
	locks  KeyLocker
	logger logging.Logger
}

func NewService(store repomanager.Store, pub Publisher, locks KeyLocker, logger logging.Logger) *Service {
	return &Service{store: store, pub: pub, locks: locks, logger: logger.With("module", "identity")}
}

func (s *Service) publish(event string, payload any) {
	if s.pub != nil {
		s.pub.Publish(event, payload)
	}
}

func (s *Service) lockIdentity(id string) func() {
	if s.locks == nil {
		return func() {}
	}
	return s.locks.LockIdentity(id)
}

// Register creates a patron account. Usernames are unique.
func (s *Service) Register(ctx context.Context, username, password string) (*models.Identity, error) {
	return s.create(ctx, username, password, models.RolePatron)
}

// CreateUser is the admin variant of Register and may assign any role.
func (s *Service) CreateUser(ctx context.Context, username, password string, role models.Role) (*models.Identity, error) {
	if role != models.RoleAdmin && role != models.RolePatron {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrValidation, role)
	}
	return s.create(ctx, username, password, role)
}

func (s *Service) create(ctx context.Context, username, password string, role models.Role) (*models.Identity, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", common.ErrValidation)
	}

	if _, err := s.store.Identities().GetByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("%w: username is already taken", common.ErrValidation)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	identity := &models.Identity{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Status:       models.IdentityActive,
		CreatedAt:    time.Now(),
	}

	if _, err := s.store.Identities().Create(ctx, identity); err != nil {
		return nil, err
	}

	s.publish(protocol.EventUserAdded, identity)
	return identity, nil
}

// VerifyCredentials authenticates a username/password pair. All failure
// modes map to ErrAuthentication so callers cannot probe which part failed,
// except a locked account which is told so explicitly.
func (s *Service) VerifyCredentials(ctx context.Context, username, password string) (*models.Identity, error) {
	identity, err := s.store.Identities().GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrAuthentication
		}
		return nil, err
	}

	if err := auth.VerifyPassword(identity.PasswordHash, password); err != nil {
		return nil, err
	}

	if identity.Status == models.IdentityLocked {
		return nil, fmt.Errorf("%w: account is locked", common.ErrAuthentication)
	}

	return identity, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	return s.store.Identities().GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*models.Identity, error) {
	return s.store.Identities().List(ctx)
}

// UpdateParams carries the optional fields of an update; nil means "leave
// unchanged".
type UpdateParams struct {
	Username *string                `json:"username,omitempty"`
	Password *string                `json:"password,omitempty"`
	Role     *models.Role           `json:"role,omitempty"`
	Status   *models.IdentityStatus `json:"status,omitempty"`
}

// Update applies a partial update. Role and status changes are restricted to
// admins at the dispatch layer; self-service updates only reach username and
// password.
func (s *Service) Update(ctx context.Context, id string, params UpdateParams) (*models.Identity, error) {
	unlock := s.lockIdentity(id)
	defer unlock()

	identity, err := s.store.Identities().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Username != nil && *params.Username != identity.Username {
		if *params.Username == "" {
			return nil, fmt.Errorf("%w: username cannot be empty", common.ErrValidation)
		}
		if _, err := s.store.Identities().GetByUsername(ctx, *params.Username); err == nil {
			return nil, fmt.Errorf("%w: username is already taken", common.ErrValidation)
		} else if !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		identity.Username = *params.Username
	}
	if params.Password != nil {
		hash, err := auth.HashPassword(*params.Password)
		if err != nil {
			return nil, err
		}
		identity.PasswordHash = hash
	}
	if params.Role != nil {
		if *params.Role != models.RoleAdmin && *params.Role != models.RolePatron {
			return nil, fmt.Errorf("%w: unknown role %q", common.ErrValidation, *params.Role)
		}
		identity.Role = *params.Role
	}
	if params.Status != nil {
		switch *params.Status {
		case models.IdentityActive, models.IdentityPending, models.IdentityLocked:
			identity.Status = *params.Status
		default:
			return nil, fmt.Errorf("%w: unknown status %q", common.ErrValidation, *params.Status)
		}
	}

	if err := s.store.Identities().Update(ctx, identity); err != nil {
		return nil, err
	}

	s.publish(protocol.EventUserUpdated, identity)
	return identity, nil
}

// Delete removes an account. Accounts holding open borrow records cannot be
// deleted: that would orphan active circulation state.
func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.lockIdentity(id)
	defer unlock()

	open, err := s.store.Records().ListNonTerminalByIdentity(ctx, id)
	if err != nil {
		return err
	}
	if len(open) > 0 {
		return fmt.Errorf("%w: account still holds %d borrowed items", common.ErrValidation, len(open))
	}

	if err := s.store.Identities().Delete(ctx, id); err != nil {
		return err
	}

	s.publish(protocol.EventUserDeleted, map[string]string{"id": id})
	return nil
}
