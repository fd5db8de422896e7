// Package tcp accepts newline-delimited line protocol connections.
package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/store"
	"github.com/vovakirdan/linechat-server/internal/transport/conn"
)

// Server is the TCP acceptor. Every accepted connection is served by the
// shared connection handler on its own goroutine.
type Server struct {
	addr         string
	maxLineBytes int
	handler      *conn.Handler
	log          *zerolog.Logger

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

// NewServer builds a TCP acceptor for addr.
func NewServer(addr string, maxLineBytes int, handler *conn.Handler, logger *zerolog.Logger) *Server {
	return &Server{
		addr:         addr,
		maxLineBytes: maxLineBytes,
		handler:      handler,
		log:          logger,
	}
}

// ListenAndServe listens on the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen tcp %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done. It returns after every
// connection worker has finished.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer s.wg.Wait()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("tcp listener started")

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.log.Info().Msg("tcp listener stopped")
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.log.Warn().Err(err).Msg("tcp accept")
				time.Sleep(50 * time.Millisecond)
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			lc := newLineConn(nc, s.maxLineBytes)
			_ = s.handler.Serve(ctx, store.TransportTCP, sessionID(nc.RemoteAddr()), lc)
		}()
	}
}

// Addr returns the listener address once Serve has started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// sessionID names a TCP session after the peer's port.
func sessionID(addr net.Addr) string {
	if tcpAddr, ok := addr.(*net.TCPAddr); ok {
		return "Client-" + strconv.Itoa(tcpAddr.Port)
	}
	if _, port, err := net.SplitHostPort(addr.String()); err == nil {
		return "Client-" + port
	}
	return "Client-" + addr.String()
}

// lineConn frames a net.Conn as newline-delimited lines.
type lineConn struct {
	nc      net.Conn
	scanner *bufio.Scanner
}

func newLineConn(nc net.Conn, maxLineBytes int) *lineConn {
	scanner := bufio.NewScanner(nc)
	if maxLineBytes > 0 {
		scanner.Buffer(make([]byte, 0, min(maxLineBytes, 4096)), maxLineBytes)
	}
	return &lineConn{nc: nc, scanner: scanner}
}

func (c *lineConn) ReadLine(context.Context) (string, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimRight(c.scanner.Text(), "\r"), nil
}

func (c *lineConn) WriteLine(ctx context.Context, line string) error {
	deadline, _ := ctx.Deadline()
	if err := c.nc.SetWriteDeadline(deadline); err != nil {
		return err
	}
	_, err := c.nc.Write([]byte(line + "\n"))
	return err
}

func (c *lineConn) RemoteAddr() string {
	return c.nc.RemoteAddr().String()
}

func (c *lineConn) Close() error {
	return c.nc.Close()
}
