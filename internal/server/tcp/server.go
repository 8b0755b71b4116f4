// Package tcp implements the connection listener and the per-connection
// protocol handlers.
package tcp

import (
	"context"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/libcirc/internal/logging"
	"github.com/dmitrijs2005/libcirc/internal/server/broadcast"
	"github.com/dmitrijs2005/libcirc/internal/server/catalog"
	"github.com/dmitrijs2005/libcirc/internal/server/circulation"
	"github.com/dmitrijs2005/libcirc/internal/server/identity"
	"github.com/dmitrijs2005/libcirc/internal/server/sessions"
)

// Deps are the shared services every handler dispatches into. One instance
// of each is constructed at startup and injected here; handlers never build
// their own.
type Deps struct {
	Registry  *sessions.Registry
	Engine    *circulation.Engine
	Identity  *identity.Service
	Catalog   *catalog.Service
	Broadcast *broadcast.Broadcaster
}

type Server struct {
	address  string
	maxConns int
	deps     Deps
	logger   logging.Logger
	actions  map[string]action
	wg       sync.WaitGroup
}

func NewServer(address string, maxConns int, deps Deps, logger logging.Logger) *Server {
	s := &Server{
		address:  address,
		maxConns: maxConns,
		deps:     deps,
		logger:   logger.With("module", "tcp_server"),
	}
	s.actions = buildActionTable()
	return s
}

// Run accepts connections until ctx is cancelled, then stops accepting and
// waits for the running handlers to finish their in-flight requests.
//
// The connection bound is a semaphore taken before Accept: connections past
// the limit queue in the kernel backlog instead of being turned away.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "stopping listener")
		_ = listener.Close()
	}()

	s.logger.Info(ctx, "listener started", "address", s.address, "maxConns", s.maxConns)

	sem := make(chan struct{}, s.maxConns)

	for {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			s.wg.Wait()
			return nil
		}

		conn, err := listener.Accept()
		if err != nil {
			<-sem
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			s.logger.Warn(ctx, "accept failed", "error", err.Error())
			continue
		}

		h := newHandler(uuid.NewString(), conn, s)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-sem }()
			h.run(ctx)
		}()
	}
}
