package http

import (
	"context"
	"errors"
	"net"
	stdhttp "net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/store"
	"github.com/vovakirdan/linechat-server/internal/transport/conn"
	"github.com/vovakirdan/linechat-server/internal/utils"
)

// WSHandler upgrades HTTP connections and serves them as line streams: each
// text frame carries exactly one line in either direction.
type WSHandler struct {
	conns     *conn.Handler
	readLimit int64
	log       *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(conns *conn.Handler, readLimit int64, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{conns: conns, readLimit: readLimit, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	if h.readLimit > 0 {
		c.SetReadLimit(h.readLimit)
	}

	lc := &wsConn{conn: c, remote: r.RemoteAddr}
	if err := h.conns.Serve(r.Context(), store.TransportWebSocket, utils.NewID(), lc); err != nil {
		h.log.Warn().Err(err).Msg("ws session rejected")
	}
}

type wsConn struct {
	conn   *websocket.Conn
	remote string
}

func (c *wsConn) ReadLine(ctx context.Context) (string, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func (c *wsConn) WriteLine(ctx context.Context, line string) error {
	return c.conn.Write(ctx, websocket.MessageText, []byte(line))
}

func (c *wsConn) RemoteAddr() string {
	return c.remote
}

func (c *wsConn) Close() error {
	err := c.conn.Close(websocket.StatusNormalClosure, "closing")
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
