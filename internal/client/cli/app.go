// Package cli implements the interactive terminal client.
package cli

import (
	"bufio"
	"context"
	"os"
	"sync"

	"github.com/dmitrijs2005/libcirc/internal/client/client"
	"github.com/dmitrijs2005/libcirc/internal/client/config"
	"github.com/dmitrijs2005/libcirc/internal/protocol"
)

// apiClient is the slice of the wire client the CLI uses; tests provide a
// stub.
type apiClient interface {
	Do(ctx context.Context, action string, payload any) (*protocol.Response, error)
	Events() <-chan protocol.Event
	SetSession(token string)
	ClearSession()
	Close() error
}

type App struct {
	config *config.Config
	api    apiClient
	reader *bufio.Reader

	mu         sync.Mutex
	username   string
	admin      bool
	sessionUID string // registry id, used to recognize our own termination
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	api, err := client.Dial(ctx, c.ServerEndpointAddr)
	if err != nil {
		return nil, err
	}
	return &App{config: c, api: api, reader: bufio.NewReader(os.Stdin)}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.api.Close()

	go a.watchEvents(ctx)

	printlnFn("Library circulation CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.username != ""
}

func (a *App) isAdmin() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.admin
}

func (a *App) status() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.username == "" {
		return "guest"
	}
	if a.admin {
		return a.username + " (admin)"
	}
	return a.username
}

func (a *App) setIdentity(username string, admin bool, sessionUID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.username = username
	a.admin = admin
	a.sessionUID = sessionUID
}

func (a *App) clearIdentity() {
	a.setIdentity("", false, "")
	a.api.ClearSession()
}
