// Package sessions tracks live authenticated sessions and enforces the
// single-session-per-identity policy: a second login displaces the first.
//
// The in-memory registry is the single source of truth for "who is logged
// in". The identity row's online flag is a write-through cache kept for
// visibility; it is never consulted to admit or displace a login, and it is
// cleared wholesale at startup so a crash cannot leave accounts stuck online.
package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/logging"
	"github.com/dmitrijs2005/libcirc/internal/protocol"
	"github.com/dmitrijs2005/libcirc/internal/server/auth"
	"github.com/dmitrijs2005/libcirc/internal/server/models"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/identities"
)

// Publisher receives session lifecycle events.
type Publisher interface {
	Publish(event string, payload any)
}

type Registry struct {
	mu      sync.Mutex
	byID    map[string]*models.Session
	byOwner map[string]string // identity id -> session id

	repo    identities.Repository
	pub     Publisher
	logger  logging.Logger
	secret  []byte
	idleTTL time.Duration
	now     func() time.Time
}

func NewRegistry(repo identities.Repository, pub Publisher, logger logging.Logger, secret []byte, idleTTL time.Duration) *Registry {
	return &Registry{
		byID:    make(map[string]*models.Session),
		byOwner: make(map[string]string),
		repo:    repo,
		pub:     pub,
		logger:  logger.With("module", "sessions"),
		secret:  secret,
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Authenticate registers a session for an identity whose credentials were
// already verified. Any existing session for the same identity is displaced
// first; the whole exchange happens under one lock, so two simultaneous
// logins cannot both believe they own the live session.
func (r *Registry) Authenticate(ctx context.Context, identity *models.Identity) (*models.Session, string, error) {
	now := r.now()
	session := &models.Session{
		ID:             uuid.NewString(),
		IdentityID:     identity.ID,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	r.mu.Lock()
	displaced, hadPrev := r.byOwner[identity.ID]
	if hadPrev {
		delete(r.byID, displaced)
	}
	r.byID[session.ID] = session
	r.byOwner[identity.ID] = session.ID
	r.mu.Unlock()

	if hadPrev {
		r.notifyTerminated(displaced, "displaced by a newer login")
	}

	r.cacheOnline(ctx, identity.ID, true)

	token, err := auth.SignSessionToken(session.ID, identity.ID, r.secret)
	if err != nil {
		r.Terminate(ctx, session.ID)
		return nil, "", err
	}

	return session, token, nil
}

// Resolve verifies the wire token and returns the live session it names.
func (r *Registry) Resolve(token string) (*models.Session, error) {
	sessionID, err := auth.ParseSessionToken(token, r.secret)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.byID[sessionID]
	if !ok {
		return nil, common.ErrAuthorization
	}
	c := *session
	return &c, nil
}

// Terminate removes a session. Terminating an unknown session is a no-op so
// cleanup after abrupt disconnects stays idempotent.
func (r *Registry) Terminate(ctx context.Context, sessionID string) {
	r.mu.Lock()
	session, ok := r.byID[sessionID]
	if ok {
		delete(r.byID, sessionID)
		if r.byOwner[session.IdentityID] == sessionID {
			delete(r.byOwner, session.IdentityID)
		}
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	r.notifyTerminated(sessionID, "logged out")
	r.cacheOnline(ctx, session.IdentityID, false)
}

// Touch refreshes the idle timer. Called for every request that carries a
// session token.
func (r *Registry) Touch(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.byID[sessionID]; ok {
		session.LastActivityAt = r.now()
	}
}

func (r *Registry) IsActive(identityID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byOwner[identityID]
	return ok
}

func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// SweepIdle terminates every session idle longer than the TTL and returns
// how many were evicted.
func (r *Registry) SweepIdle(ctx context.Context) int {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var stale []string
	for id, session := range r.byID {
		if session.LastActivityAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.Unlock()

	for _, id := range stale {
		r.logger.Info(ctx, "evicting idle session", "sessionID", id)
		r.Terminate(ctx, id)
	}
	return len(stale)
}

// StartSweeper runs SweepIdle on the given interval until ctx is cancelled.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.SweepIdle(ctx)
			}
		}
	}()
}

// ResetOnlineCache clears every cached online flag. Called once at startup.
func (r *Registry) ResetOnlineCache(ctx context.Context) {
	if err := r.repo.ClearOnline(ctx); err != nil {
		r.logger.Warn(ctx, "could not reset online cache", "error", err.Error())
	}
}

func (r *Registry) notifyTerminated(sessionID, reason string) {
	if r.pub != nil {
		r.pub.Publish(protocol.EventSessionTerminated, map[string]string{
			"sessionId": sessionID,
			"reason":    reason,
		})
	}
}

// cacheOnline mirrors registry state into the store, best-effort.
func (r *Registry) cacheOnline(ctx context.Context, identityID string, online bool) {
	if err := r.repo.SetOnline(ctx, identityID, online); err != nil {
		r.logger.Warn(ctx, "could not update online cache", "identityID", identityID, "error", err.Error())
	}
}
