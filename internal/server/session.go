package server

import (
	"context"
	"log/slog"
	"net"

	"github.com/ChuLiYu/flight-server/internal/clock"
	"github.com/ChuLiYu/flight-server/internal/protocol"
	"github.com/ChuLiYu/flight-server/pkg/types"
)

// Handler receives every decoded message of a connection, in arrival order,
// on the worker that owns the connection. Returning an error ends the
// connection.
type Handler interface {
	HandleMessage(ctx context.Context, s *Session, msg protocol.Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, s *Session, msg protocol.Message) error

func (f HandlerFunc) HandleMessage(ctx context.Context, s *Session, msg protocol.Message) error {
	return f(ctx, s, msg)
}

// Session is the handler's view of one client connection. It is only valid
// for the duration of the job that owns the connection.
type Session struct {
	id    types.ClientID
	conn  net.Conn
	clock clock.Clock
}

// ClientID returns the id assigned when the connection was accepted.
func (s *Session) ClientID() types.ClientID {
	return s.id
}

// RemoteAddr returns the client's network address.
func (s *Session) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// Send writes one freshly stamped packet carrying msg to the client.
func (s *Session) Send(msg protocol.Message) error {
	return protocol.WritePacket(s.conn, protocol.NewPacket(msg, s.clock))
}

// DiscardHandler accepts every message and does nothing.
func DiscardHandler() Handler {
	return HandlerFunc(func(context.Context, *Session, protocol.Message) error { return nil })
}

// LogHandler logs every message at debug level.
func LogHandler(logger *slog.Logger) Handler {
	return HandlerFunc(func(ctx context.Context, s *Session, msg protocol.Message) error {
		logger.DebugContext(ctx, "message handled", "client", s.ClientID(), "message", msg.String())
		return nil
	})
}
