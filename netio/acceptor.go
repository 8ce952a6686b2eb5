// Package netio implements the TCP connection acceptor and outgoing dialer,
// plus the platform-specific SO_REUSEADDR control used by both it and the
// discovery package's UDP sockets.
package netio

import (
	"context"
	"net"

	"go.uber.org/zap"

	"go_lan_transfer/constants"
	"go_lan_transfer/looptask"
	"go_lan_transfer/xerr"
)

// Acceptor is a TCP listener wrapped in a Loop, emitting accepted
// connections on a channel.
type Acceptor struct {
	addr     string
	log      *zap.Logger
	loop     *looptask.Loop
	listener net.Listener
	conns    chan net.Conn
}

// NewAcceptor builds an Acceptor bound to addr (e.g. "0.0.0.0:52123").
// Binding happens in Run, not here.
func NewAcceptor(addr string, log *zap.Logger) *Acceptor {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Acceptor{
		addr:  addr,
		log:   log.With(zap.String("component", "acceptor")),
		conns: make(chan net.Conn),
	}
	a.loop = looptask.New(a.acceptLoop, a.log)
	return a
}

// Conns returns the channel of accepted connections.
func (a *Acceptor) Conns() <-chan net.Conn {
	return a.conns
}

// Addr returns the listener's bound address. It is nil until Run has
// successfully bound the listener.
func (a *Acceptor) Addr() net.Addr {
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Run binds the listener (if not already bound) and starts accepting.
func (a *Acceptor) Run() error {
	if a.listener == nil {
		lc := ReuseAddrListenConfig()
		ln, err := lc.Listen(context.Background(), "tcp", a.addr)
		if err != nil {
			return xerr.Wrap(xerr.Io, err, "listen")
		}
		a.listener = ln
		a.log.Info("listening", zap.String("addr", a.addr))
	}
	return a.loop.Run()
}

// Close stops accepting and closes the listener.
func (a *Acceptor) Close() error {
	err := a.loop.Close()
	if a.listener != nil {
		_ = a.listener.Close()
	}
	return err
}

func (a *Acceptor) acceptLoop(ctx context.Context) error {
	closeOnCancel := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = a.listener.Close()
		case <-closeOnCancel:
		}
	}()
	defer close(closeOnCancel)

	for {
		conn, err := a.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			a.log.Warn("accept failed", zap.Error(err))
			continue
		}

		tuneConn(conn)

		select {
		case a.conns <- conn:
		case <-ctx.Done():
			_ = conn.Close()
			return nil
		}
	}
}

// tuneConn applies the default socket buffer sizes and disables Nagle's
// algorithm on every accepted or dialed connection.
func tuneConn(conn net.Conn) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
		_ = tcp.SetReadBuffer(constants.SocketBuffer)
		_ = tcp.SetWriteBuffer(constants.SocketBuffer)
	}
}
