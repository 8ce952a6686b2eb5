// Package fleet implements the top-level orchestrator that owns the
// connection acceptor, the discovery sender and receiver, and every
// session opened against a peer — the single object a peer binary
// constructs and drives.
package fleet

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"go_lan_transfer/collab"
	"go_lan_transfer/discovery"
	"go_lan_transfer/netio"
	"go_lan_transfer/session"
	"go_lan_transfer/xfer"
)

// Fleet holds the acceptor, the discovery handler, and every session
// opened so far, either by an incoming connection or by SendFile.
type Fleet struct {
	log *zap.Logger

	root     collab.Folder
	prompts  collab.UserPrompts
	password string

	acceptor *netio.Acceptor
	sender   *discovery.Sender
	receiver *discovery.Receiver

	mu       sync.Mutex
	sessions map[string]*session.Session
	stopped  bool
}

// Config bundles the collaborator dependencies and ports a Fleet is built
// from.
type Config struct {
	BindAddr          string
	Port              int
	BroadcastInterval time.Duration
	Root              collab.Folder
	Prompts           collab.UserPrompts
	Password          string
	Log               *zap.Logger
}

// New constructs a Fleet and opens the discovery sender and receiver
// sockets; the TCP listener is not bound until Run is called.
func New(cfg Config) (*Fleet, error) {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	// Port 0 means "let the OS pick an ephemeral port", matching
	// net.Listen's own convention; callers that want the well-known
	// default pass constants.Port explicitly.
	port := cfg.Port
	bindAddr := cfg.BindAddr
	if bindAddr == "" {
		bindAddr = "0.0.0.0"
	}

	sender, err := discovery.NewSender(log, cfg.BroadcastInterval)
	if err != nil {
		return nil, err
	}
	receiver, err := discovery.NewReceiver(log)
	if err != nil {
		_ = sender.Close()
		return nil, err
	}

	f := &Fleet{
		log:      log.With(zap.String("component", "fleet")),
		root:     cfg.Root,
		prompts:  cfg.Prompts,
		password: cfg.Password,
		acceptor: netio.NewAcceptor(fmt.Sprintf("%s:%d", bindAddr, port), log),
		sender:   sender,
		receiver: receiver,
		sessions: map[string]*session.Session{},
	}
	return f, nil
}

// BoundPort returns the TCP port the acceptor is listening on, useful when
// Config.Port was 0 and the OS picked an ephemeral port. It is 0 before Run.
func (f *Fleet) BoundPort() int {
	addr, ok := f.acceptor.Addr().(*net.TCPAddr)
	if !ok {
		return 0
	}
	return addr.Port
}

// Peers exposes the live discovery peer set.
func (f *Fleet) Peers() *discovery.PeerSet {
	return f.receiver.Peers()
}

// Run starts the acceptor, the discovery loops, and the goroutine that
// turns newly accepted connections into sessions.
func (f *Fleet) Run() error {
	if err := f.acceptor.Run(); err != nil {
		return err
	}
	if err := f.sender.Run(); err != nil {
		return err
	}
	if err := f.receiver.Run(); err != nil {
		return err
	}
	go f.acceptLoop()
	return nil
}

func (f *Fleet) acceptLoop() {
	for conn := range f.acceptor.Conns() {
		go f.handleAccepted(conn)
	}
}

func (f *Fleet) handleAccepted(conn net.Conn) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}

	sess := f.sessionFor(host)
	tr, err := sess.HandleIncoming(conn)
	if err != nil {
		f.log.Warn("incoming transfer failed", zap.String("peer", host), zap.Error(err))
		return
	}
	f.log.Info("incoming transfer started",
		zap.String("peer", host), zap.Stringer("direction", tr.Direction))
}

// SendFile resolves or creates the session for peerAddr (sessions are
// keyed by host alone), records port on it as the peer's listening port,
// and starts an outgoing transfer for file over it. dscp, when non-zero,
// tags the connection's TOS byte.
func (f *Fleet) SendFile(ctx context.Context, peerAddr string, port int, file collab.PickedFile, dscp int) (*xfer.Transfer, error) {
	sess := f.sessionFor(peerAddr)
	sess.SetPort(port)
	return sess.StartOutgoing(ctx, file, dscp)
}

// sessionFor returns the session tracking every inbound and outbound
// transfer against peerAddr, creating one if none exists yet. Sessions are
// keyed by host alone: an accepted connection only ever exposes the peer's
// ephemeral client-side port (conn.RemoteAddr()), never the port its
// acceptor is actually listening on, so a connection's source port can't
// be used to recognize "the same peer" a later SendFile call dials by its
// real listening port. One peer, one session, regardless of direction.
func (f *Fleet) sessionFor(peerAddr string) *session.Session {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.sessions[peerAddr]; ok && !s.Stopped() {
		return s
	}
	s := session.New(peerAddr, 0, f.password, f.root, f.prompts, f.log)
	f.sessions[peerAddr] = s
	return s
}

// Sessions returns a snapshot of every session tracked so far.
func (f *Fleet) Sessions() []*session.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*session.Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, s)
	}
	return out
}

// Stop cancels the acceptor, both discovery loops, and every session,
// fanning out cancellation to every transfer they contain.
func (f *Fleet) Stop() error {
	f.mu.Lock()
	f.stopped = true
	sessions := make([]*session.Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		sessions = append(sessions, s)
	}
	f.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}

	var firstErr error
	if err := f.acceptor.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := f.sender.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := f.receiver.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
