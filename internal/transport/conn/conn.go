// Package conn runs one connection worker: handshake, line loop and cleanup.
// Acceptors only adapt their framing to Conn.
package conn

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/store"
	"github.com/vovakirdan/linechat-server/internal/transport/outbox"
	"github.com/vovakirdan/linechat-server/internal/utils"
)

// Conn is one framed, bidirectional line stream.
type Conn interface {
	// ReadLine blocks for the next inbound line without its terminator.
	ReadLine(ctx context.Context) (string, error)
	// WriteLine writes one line; ctx carries the write deadline.
	WriteLine(ctx context.Context, line string) error
	RemoteAddr() string
	Close() error
}

// Config bounds the resources of one connection.
type Config struct {
	SendBuffer         int
	WriteTimeout       time.Duration
	RateLimitPerMinute int
}

// Handler serves connections against a shared registry.
type Handler struct {
	reg    *core.Registry
	ledger store.Ledger
	cfg    Config
	log    *zerolog.Logger

	wg sync.WaitGroup
}

// NewHandler builds a connection handler. ledger may be nil.
func NewHandler(reg *core.Registry, ledger store.Ledger, cfg Config, logger *zerolog.Logger) *Handler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Handler{reg: reg, ledger: ledger, cfg: cfg, log: logger}
}

// Wait blocks until every connection served by h has been cleaned up.
func (h *Handler) Wait() {
	h.wg.Wait()
}

// Serve runs the connection until the peer disconnects, the session quits,
// the outbound queue overflows or ctx is cancelled. The session's room
// membership is fully unwound before Serve returns.
func (h *Handler) Serve(ctx context.Context, transport, id string, c Conn) error {
	h.wg.Add(1)
	defer h.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopClose := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stopClose()

	box := outbox.New(h.cfg.SendBuffer)
	session, err := h.register(id, box)
	if err != nil {
		_ = c.Close()
		return err
	}
	logger := h.log.With().
		Str("session_id", session.ID()).
		Str("transport", transport).
		Str("remote_addr", c.RemoteAddr()).
		Logger()
	logger.Info().Msg("connection accepted")

	h.recordConnect(ctx, session, transport, c.RemoteAddr())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		if err := box.Run(ctx, h.cfg.WriteTimeout, c.WriteLine); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn().Err(err).Msg("outbound writer stopped")
		}
		cancel()
	}()

	reason := h.loop(ctx, session, c, box)

	h.reg.Unregister(session)
	box.Close()
	<-writerDone
	_ = c.Close()

	h.recordDisconnect(session)
	logger.Info().
		Str("name", session.Name()).
		Str("reason", reason).
		Int("unsent", box.Len()).
		Msg("connection closed")
	return nil
}

func (h *Handler) register(id string, box *outbox.Outbox) (*core.Session, error) {
	session := core.NewSession(id, box)
	err := h.reg.Register(session)
	if errors.Is(err, core.ErrDuplicateSession) {
		session = core.NewSession(id+"-"+utils.ShortID(), box)
		err = h.reg.Register(session)
	}
	if err != nil {
		h.log.Error().Err(err).Str("session_id", id).Msg("register session")
		return nil, err
	}
	return session, nil
}

// loop runs the handshake and then the line loop. It returns why it stopped.
// Lines read after the outbox has stopped are not handled.
func (h *Handler) loop(ctx context.Context, s *core.Session, c Conn, box *outbox.Outbox) string {
	s.Send(core.PromptUsername)
	username, err := c.ReadLine(ctx)
	if err != nil {
		return "handshake: " + err.Error()
	}
	h.reg.Greet(s, username)

	limiter := newRateLimiter(h.cfg.RateLimitPerMinute)
	for {
		line, err := c.ReadLine(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return "closed"
			}
			return err.Error()
		}
		select {
		case <-box.Done():
			return "outbox stopped"
		default:
		}
		if !limiter.allow() {
			s.Send(core.NoticeRateLimited)
			continue
		}
		if h.reg.HandleLine(s, line) {
			return "quit"
		}
	}
}

func (h *Handler) recordConnect(ctx context.Context, s *core.Session, transport, remote string) {
	if h.ledger == nil {
		return
	}
	rec := &store.SessionRecord{
		SessionID:   s.ID(),
		Transport:   transport,
		RemoteAddr:  remote,
		Name:        s.Name(),
		ConnectedAt: s.ConnectedAt(),
	}
	if err := h.ledger.RecordConnect(ctx, rec); err != nil {
		h.log.Warn().Err(err).Str("session_id", s.ID()).Msg("ledger record connect")
	}
}

// recordDisconnect runs after the connection context is gone, so it uses its
// own short deadline.
func (h *Handler) recordDisconnect(s *core.Session) {
	if h.ledger == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.ledger.RecordDisconnect(ctx, s.ID(), s.Name(), time.Now()); err != nil {
		h.log.Warn().Err(err).Str("session_id", s.ID()).Msg("ledger record disconnect")
	}
}
