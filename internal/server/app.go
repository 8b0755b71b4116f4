// Package server initializes and runs the circulation server: it selects the
// storage backend, wires the services together, starts the background
// sweepers and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/libcirc/internal/logging"
	"github.com/dmitrijs2005/libcirc/internal/server/broadcast"
	"github.com/dmitrijs2005/libcirc/internal/server/catalog"
	"github.com/dmitrijs2005/libcirc/internal/server/circulation"
	"github.com/dmitrijs2005/libcirc/internal/server/config"
	"github.com/dmitrijs2005/libcirc/internal/server/identity"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/libcirc/internal/server/sessions"
	"github.com/dmitrijs2005/libcirc/internal/server/tcp"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	store    repomanager.Store
	registry *sessions.Registry
	engine   *circulation.Engine
	server   *tcp.Server
	closeDB  func() error
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	var store repomanager.Store
	var closeDB func() error

	if cfg.DatabaseDSN != "" {
		pg, err := repomanager.NewPostgresStore(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		store = pg
		closeDB = pg.Close
	} else {
		logger.Warn(ctx, "no database DSN configured, using in-memory store")
		store = repomanager.NewMemoryStore()
	}

	bc := broadcast.New(logger)
	registry := sessions.NewRegistry(store.Identities(), bc, logger, []byte(cfg.SecretKey), cfg.SessionIdleTTL)
	engine := circulation.NewEngine(store, bc, logger)
	identitySvc := identity.NewService(store, bc, engine, logger)
	catalogSvc := catalog.NewService(store, bc, logger)

	srv := tcp.NewServer(cfg.ListenAddr, cfg.MaxConns, tcp.Deps{
		Registry:  registry,
		Engine:    engine,
		Identity:  identitySvc,
		Catalog:   catalogSvc,
		Broadcast: bc,
	}, logger)

	return &App{
		config:   cfg,
		logger:   logger,
		store:    store,
		registry: registry,
		engine:   engine,
		server:   srv,
		closeDB:  closeDB,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// startOverdueSweeper promotes due loans to OVERDUE on the sweep interval.
func (app *App) startOverdueSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := app.engine.SweepOverdue(ctx); err != nil {
					app.logger.Warn(ctx, "overdue sweep failed", "error", err.Error())
				}
			}
		}
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	// a crash can leave stale online flags behind
	app.registry.ResetOnlineCache(ctx)

	app.registry.StartSweeper(ctx, app.config.SweepInterval)
	app.startOverdueSweeper(ctx, app.config.SweepInterval)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if app.closeDB != nil {
		if err := app.closeDB(); err != nil {
			app.logger.Error(ctx, "db close error", "error", err.Error())
		}
	}

	app.logger.Info(ctx, "app stopped")
}
