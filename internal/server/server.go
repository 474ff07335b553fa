// ============================================================================
// Flight Server - Connection Dispatch Loop
// ============================================================================
//
// Package: internal/server
// File: server.go
// Function: Owns the listening socket and turns every accepted connection
//           into one job on the worker pool
//
// Flow:
//   Accept loop ──conn──> assign ClientID ──> Pool.Execute(job)
//                                              │
//                        worker ── job: greet → ReadPacket loop → Handler
//
// Error classes:
//   - bind failure         → returned from Listen, startup aborts
//   - accept failure       → logged + counted, loop continues after backoff
//   - malformed frame      → that connection's job ends, nothing else affected
//   - job panic            → recovered by the worker, connection closed by defer
//
// Shutdown (ctx cancelled):
//   1. close listener and pool queue, stop accepting (a dispatch blocked on
//      a full queue returns and its connection is closed)
//   2. wait up to ShutdownTimeout for queued and running jobs to end on their own
//   3. close remaining client connections so blocked reads return
//   4. wait for every worker to exit
//
// ============================================================================

// Package server implements the TCP dispatch loop.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/ChuLiYu/flight-server/internal/clock"
	"github.com/ChuLiYu/flight-server/internal/idgen"
	"github.com/ChuLiYu/flight-server/internal/protocol"
	"github.com/ChuLiYu/flight-server/internal/worker"
	"github.com/ChuLiYu/flight-server/pkg/types"
)

var (
	// ErrServerStarted is returned when Serve is called more than once
	ErrServerStarted = errors.New("server already started")
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// Config Server 配置
type Config struct {
	Addr            string                // 監聽位址 host:port
	Workers         int                   // Worker 數量
	QueueCapacity   int                   // 佇列容量，0 為無上限
	Overflow        worker.OverflowPolicy // 佇列滿時策略
	GreetOnConnect  bool                  // 連線建立後先送出 Ping
	ShutdownTimeout time.Duration         // 關閉時等待連線自行結束的時間
}

// Observer receives connection and frame events. If it also implements
// worker.Observer it is handed to the pool as well.
type Observer interface {
	ConnectionAccepted()
	ConnectionClosed()
	AcceptFailed()
	FrameDecoded(message string)
	FrameRejected(reason string)
}

type nopObserver struct{}

func (nopObserver) ConnectionAccepted()  {}
func (nopObserver) ConnectionClosed()    {}
func (nopObserver) AcceptFailed()        {}
func (nopObserver) FrameDecoded(string)  {}
func (nopObserver) FrameRejected(string) {}

// Option configures optional collaborators
type Option func(*Server)

// WithLogger sets the logger; defaults to slog.Default()
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithObserver sets the metrics observer
func WithObserver(o Observer) Option {
	return func(s *Server) { s.observer = o }
}

// WithIDs injects the client id counter; defaults to a fresh counter at 0
func WithIDs(c *idgen.Counter) Option {
	return func(s *Server) { s.ids = c }
}

// WithClock injects the packet clock; defaults to clock.System
func WithClock(c clock.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// Server TCP 連線分派器
type Server struct {
	cfg      Config
	handler  Handler
	pool     *worker.Pool
	ids      *idgen.Counter
	clock    clock.Clock
	logger   *slog.Logger
	observer Observer

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closing  bool
}

// Listen binds addr. A failure here is fatal to startup.
func Listen(addr string) (net.Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	return l, nil
}

// New creates a Server and starts its worker pool. A nil handler discards
// messages.
//
// 返回值：
//   - error: worker.ErrInvalidPoolSize 等建構錯誤
func New(cfg Config, handler Handler, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		handler:  handler,
		ids:      idgen.New(0),
		clock:    clock.System{},
		logger:   slog.Default(),
		observer: nopObserver{},
		conns:    make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.handler == nil {
		s.handler = DiscardHandler()
	}
	s.logger = s.logger.With("component", "server")

	poolOpts := []worker.Option{
		worker.WithQueueCapacity(cfg.QueueCapacity),
		worker.WithOverflowPolicy(cfg.Overflow),
		worker.WithLogger(s.logger),
	}
	if wo, ok := s.observer.(worker.Observer); ok {
		poolOpts = append(poolOpts, worker.WithObserver(wo))
	}

	pool, err := worker.NewPool(cfg.Workers, poolOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	s.pool = pool

	return s, nil
}

// ListenAndServe binds cfg.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := Listen(s.cfg.Addr)
	if err != nil {
		s.pool.Shutdown()
		return err
	}
	return s.Serve(ctx, l)
}

// Serve accepts connections on l until ctx is cancelled, then shuts down
// gracefully and returns nil. Serve takes ownership of l.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.mu.Lock()
	if s.listener != nil || s.closing {
		s.mu.Unlock()
		l.Close()
		return ErrServerStarted
	}
	s.listener = l
	s.mu.Unlock()

	// Handlers see a context that outlives Serve's ctx until connections are
	// force-closed during shutdown.
	connCtx, cancelConns := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelConns()

	// Closing the pool here releases an acceptor blocked on a full queue.
	stop := context.AfterFunc(ctx, func() {
		l.Close()
		s.pool.Close()
	})
	defer stop()

	s.logger.Info("server listening",
		"addr", l.Addr().String(),
		"workers", s.pool.Size())

	acceptErr := s.acceptLoop(ctx, connCtx, l)
	l.Close()

	s.shutdown(cancelConns)

	if ctx.Err() != nil {
		return nil
	}
	return acceptErr
}

func (s *Server) acceptLoop(ctx, connCtx context.Context, l net.Listener) error {
	var backoff time.Duration
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("accept: %w", err)
			}

			s.observer.AcceptFailed()
			if backoff == 0 {
				backoff = minAcceptBackoff
			} else {
				backoff = min(2*backoff, maxAcceptBackoff)
			}
			s.logger.Error("connection failed", "error", err, "retry_in", backoff)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			continue
		}
		backoff = 0
		s.dispatch(connCtx, conn)
	}
}

// dispatch assigns a client id and hands the connection to the pool. The job
// owns conn exclusively from here on.
func (s *Server) dispatch(ctx context.Context, conn net.Conn) {
	id := s.ids.Next()
	s.observer.ConnectionAccepted()
	s.track(conn)

	err := s.pool.Execute(func() {
		s.handleConn(ctx, id, conn)
	})
	if err != nil {
		s.logger.Warn("rejecting connection", "client", id, "error", err)
		s.release(conn)
	}
}

// handleConn is the per-connection job: greet, then read frames in order
// until EOF, Disconnect, a malformed frame or a handler error.
func (s *Server) handleConn(ctx context.Context, id types.ClientID, conn net.Conn) {
	logger := s.logger.With("client", id, "remote", conn.RemoteAddr().String())
	defer func() {
		s.release(conn)
		logger.Info("client disconnected")
	}()

	logger.Info("client connected")
	sess := &Session{id: id, conn: conn, clock: s.clock}

	if s.cfg.GreetOnConnect {
		if err := sess.Send(protocol.Ping); err != nil {
			logger.Warn("greeting failed", "error", err)
			return
		}
	}

	for {
		pkt, err := protocol.ReadPacket(conn)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			case errors.Is(err, protocol.ErrDecode):
				s.observer.FrameRejected(protocol.Reason(err))
				logger.Warn("malformed frame, closing connection", "error", err)
			default:
				logger.Warn("read failed", "error", err)
			}
			return
		}

		s.observer.FrameDecoded(pkt.Message.String())
		logger.Debug("message received",
			"message", pkt.Message.String(),
			"timestamp", pkt.Header.Timestamp,
			"version", pkt.Header.Version)

		if err := s.handler.HandleMessage(ctx, sess, pkt.Message); err != nil {
			logger.Warn("handler failed, closing connection", "message", pkt.Message.String(), "error", err)
			return
		}
		if pkt.Message == protocol.Disconnect {
			return
		}
	}
}

// shutdown drains the pool. Connections still open after ShutdownTimeout are
// closed so their jobs can return.
func (s *Server) shutdown(cancelConns context.CancelFunc) {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	s.logger.Info("server shutting down",
		"pending", s.pool.Pending(),
		"running", s.pool.Running())

	done := make(chan struct{})
	go func() {
		s.pool.Shutdown()
		close(done)
	}()

	timer := time.NewTimer(s.cfg.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		n := s.closeConns()
		cancelConns()
		s.logger.Warn("shutdown timeout, closed client connections", "count", n)
		<-done
	}

	s.logger.Info("server stopped")
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

// release closes conn and forgets it. Safe to call more than once per conn.
func (s *Server) release(conn net.Conn) {
	s.mu.Lock()
	_, ok := s.conns[conn]
	delete(s.conns, conn)
	s.mu.Unlock()

	conn.Close()
	if ok {
		s.observer.ConnectionClosed()
	}
}

// closeConns closes every tracked connection without forgetting it; the
// owning job's release does that.
func (s *Server) closeConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
	return len(s.conns)
}

// Addr returns the listening address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Pool exposes the worker pool for metrics and status reporting.
func (s *Server) Pool() *worker.Pool {
	return s.pool
}
