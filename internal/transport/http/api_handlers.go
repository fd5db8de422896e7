package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/store"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// APIHandlers serves the read-only admin API.
type APIHandlers struct {
	reg    *core.Registry
	ledger store.Ledger
	log    *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance. ledger may be nil.
func NewAPIHandlers(reg *core.Registry, ledger store.Ledger, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		reg:    reg,
		ledger: ledger,
		log:    logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SessionsResponse lists live sessions.
type SessionsResponse struct {
	Count    int                `json:"count"`
	Sessions []core.SessionInfo `json:"sessions"`
}

// HistoryResponse lists ledger rows, newest first.
type HistoryResponse struct {
	Sessions []*store.SessionRecord `json:"sessions"`
}

// Health reports liveness.
// GET /health
func (h *APIHandlers) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// ListSessions handles listing live sessions.
// GET /api/sessions
func (h *APIHandlers) ListSessions(c *gin.Context) {
	sessions := h.reg.Sessions()
	c.JSON(http.StatusOK, SessionsResponse{Count: len(sessions), Sessions: sessions})
}

// SessionHistory handles listing recent ledger rows.
// GET /api/sessions/history?limit=N
func (h *APIHandlers) SessionHistory(c *gin.Context) {
	if h.ledger == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session ledger disabled"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	rows, err := h.ledger.RecentSessions(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Int("limit", limit).Msg("failed to list session history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if rows == nil {
		rows = []*store.SessionRecord{}
	}
	c.JSON(http.StatusOK, HistoryResponse{Sessions: rows})
}
