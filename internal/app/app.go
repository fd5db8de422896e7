package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/linechat-server/internal/config"
	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/store"
	"github.com/vovakirdan/linechat-server/internal/store/sqlite"
	"github.com/vovakirdan/linechat-server/internal/transport/conn"
	transporthttp "github.com/vovakirdan/linechat-server/internal/transport/http"
	"github.com/vovakirdan/linechat-server/internal/transport/tcp"
)

// App wires together core, transports and the session ledger.
type App struct {
	cfg    *config.Config
	reg    *core.Registry
	ledger store.Ledger
	conns  *conn.Handler
	tcp    *tcp.Server
	log    *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	rooms, err := core.NewDirectory(cfg.RoomSpecs())
	if err != nil {
		return nil, fmt.Errorf("init rooms: %w", err)
	}
	reg := core.NewRegistry(rooms, logger)

	var ledger store.Ledger
	if cfg.DatabasePath != "" {
		st, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		if n, err := st.CloseOpen(context.Background(), time.Now()); err != nil {
			logger.Warn().Err(err).Msg("failed to close stale ledger rows")
		} else if n > 0 {
			logger.Info().Int64("rows", n).Msg("closed stale ledger rows")
		}
		ledger = st
		logger.Info().Str("db_path", cfg.DatabasePath).Msg("session ledger initialized")
	}

	conns := conn.NewHandler(reg, ledger, conn.Config{
		SendBuffer:         cfg.SendBuffer,
		WriteTimeout:       cfg.WriteTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, logger)

	return &App{
		cfg:    cfg,
		reg:    reg,
		ledger: ledger,
		conns:  conns,
		tcp:    tcp.NewServer(cfg.Addr, cfg.MaxLineBytes, conns, logger),
		log:    logger,
	}, nil
}

// Registry exposes the session registry.
func (a *App) Registry() *core.Registry {
	return a.reg
}

// TCPAddr returns the bound TCP address once Run has started listening.
func (a *App) TCPAddr() net.Addr {
	return a.tcp.Addr()
}

// Run starts every listener and blocks until ctx is cancelled or one of them
// fails. All sessions are unwound and the ledger closed before it returns.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.tcp.ListenAndServe(gctx)
	})

	if a.cfg.HTTPAddr != "" {
		server := transporthttp.NewServer(gctx, a.reg, a.ledger, a.conns, a.cfg, a.log)
		g.Go(func() error {
			a.log.Info().Str("addr", server.Addr).Msg("http listener started")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
			defer cancel()

			a.log.Info().Msg("shutting down http server")
			return server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		a.reg.RunStatus(gctx, a.cfg.StatusInterval)
		return nil
	})

	err := g.Wait()
	a.conns.Wait()
	a.cleanup()
	return err
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
