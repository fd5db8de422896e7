package http

import (
	"context"
	"net"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/config"
	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/store"
	"github.com/vovakirdan/linechat-server/internal/transport/conn"
)

// NewRouter builds the gin engine serving the admin API.
func NewRouter(reg *core.Registry, ledger store.Ledger, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(logger))

	api := NewAPIHandlers(reg, ledger, logger)
	r.GET("/health", api.Health)

	group := r.Group("/api")
	group.GET("/rooms", api.ListRooms)
	group.GET("/sessions", api.ListSessions)
	group.GET("/sessions/history", api.SessionHistory)

	return r
}

// NewMux mounts /ws on a plain ServeMux and hands everything else to the gin
// engine. The WebSocket upgrade must hijack an untouched ResponseWriter.
func NewMux(reg *core.Registry, ledger store.Ledger, conns *conn.Handler, cfg *config.Config, logger *zerolog.Logger) *stdhttp.ServeMux {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(conns, int64(cfg.MaxLineBytes), logger))
	mux.Handle("/", NewRouter(reg, ledger, logger))
	return mux
}

// NewServer builds the HTTP server. Request contexts derive from baseCtx so
// WebSocket sessions end when it is cancelled.
func NewServer(baseCtx context.Context, reg *core.Registry, ledger store.Ledger, conns *conn.Handler, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewMux(reg, ledger, conns, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
}
