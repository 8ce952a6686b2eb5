// Package session implements the per-peer orchestrator that wires parameter
// exchange, file resolution, and block streaming into a complete transfer:
// one fresh connection per transfer, each wrapped in its own framed
// channel, tracked in the owning Session's inbound or outbound set.
package session

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go_lan_transfer/blockio"
	"go_lan_transfer/collab"
	"go_lan_transfer/constants"
	"go_lan_transfer/exchange"
	"go_lan_transfer/frame"
	"go_lan_transfer/netio"
	"go_lan_transfer/xerr"
	"go_lan_transfer/xfer"
)

// Session groups every inbound and outbound transfer running against one
// peer. Each transfer owns its own TCP connection and framed channel;
// Session's job is bookkeeping and fan-out cancellation, not multiplexing.
type Session struct {
	ID       uuid.UUID
	PeerAddr string

	password string
	root     collab.Folder
	prompts  collab.UserPrompts
	log      *zap.Logger

	mu       sync.Mutex
	port     int
	inbound  map[uuid.UUID]*xfer.Transfer
	outbound map[uuid.UUID]*xfer.Transfer
	stopped  bool
}

// New builds a Session scoped to one peer address and port, with the local
// password gate and the root folder incoming files resolve against.
func New(peerAddr string, port int, password string, root collab.Folder, prompts collab.UserPrompts, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.New()
	return &Session{
		ID:       id,
		PeerAddr: peerAddr,
		password: password,
		root:     root,
		prompts:  prompts,
		log:      log.With(zap.String("peer", peerAddr), zap.String("session_id", id.String())),
		port:     port,
		inbound:  map[uuid.UUID]*xfer.Transfer{},
		outbound: map[uuid.UUID]*xfer.Transfer{},
	}
}

// SetPort records the port the peer is reachable on, learned whenever a
// caller starts an outgoing transfer against it (an accepted connection
// never reveals the peer's own listening port, so an inbound-only session
// starts with port 0 until an outgoing call fills it in).
func (s *Session) SetPort(port int) {
	s.mu.Lock()
	s.port = port
	s.mu.Unlock()
}

// StartOutgoing dials a fresh connection to the session's peer, runs
// parameter exchange as the sender, and — on a successful negotiation —
// launches and returns a running outbound Transfer. file is read but never
// written; once the transfer is launched, it closes file when it reaches a
// terminal state.
func (s *Session) StartOutgoing(ctx context.Context, file collab.PickedFile, dscp int) (*xfer.Transfer, error) {
	hash, err := hashFile(file)
	if err != nil {
		return nil, s.reportError(xerr.Wrap(xerr.FileUnavailable, err, "hash file"))
	}

	size, err := file.Size()
	if err != nil {
		return nil, s.reportError(xerr.Wrap(xerr.FileUnavailable, err, "stat file"))
	}

	s.mu.Lock()
	port := s.port
	s.mu.Unlock()

	conn, err := netio.Dial(ctx, s.PeerAddr, port, dscp)
	if err != nil {
		return nil, s.reportError(err)
	}
	ch := frame.New(conn, s.log)

	meta := exchange.FileMetadata{Name: file.Name(), Hash: hash, Size: int32(size)}
	resumeBlock, err := exchange.RunSenderExchange(ch, s.password, meta)
	if err != nil {
		_ = ch.Close()
		return nil, s.reportError(err)
	}

	acc := blockio.Open(readOnlyAdapter{file}, meta.Size, nil)
	if _, err := acc.SeekToBlock(resumeBlock); err != nil {
		_ = ch.Close()
		return nil, s.reportError(err)
	}

	t := xfer.New(xfer.Out, ch, acc, s.log, s.removeOutbound, nil)
	s.mu.Lock()
	s.outbound[t.ID] = t
	s.mu.Unlock()

	if err := t.Run(); err != nil {
		s.removeOutbound(t)
		return nil, s.reportError(err)
	}
	return t, nil
}

// HandleIncoming takes ownership of an already-accepted connection, runs
// parameter exchange as the receiver, resolves the target file on disk,
// and — on success — launches and returns a running inbound Transfer.
func (s *Session) HandleIncoming(conn net.Conn) (*xfer.Transfer, error) {
	ch := frame.New(conn, s.log)

	var fh collab.FileHandle
	var sidecar *blockio.Sidecar
	resolve := func(meta exchange.FileMetadata) (int32, error) {
		if !s.prompts.ConfirmTransfer(meta.Name, int64(meta.Size)) {
			return 0, xerr.New(xerr.LocalCancelled, "user declined incoming transfer")
		}
		resolvedFh, resolvedSidecar, resumeBlock, err := exchange.ResolveFile(s.root, meta.Name, meta.Hash, s.prompts)
		fh, sidecar = resolvedFh, resolvedSidecar
		return resumeBlock, err
	}

	meta, resumeBlock, err := exchange.RunReceiverExchange(ch, s.password, resolve)
	if err != nil {
		_ = ch.Close()
		return nil, s.reportError(err)
	}

	acc := blockio.Open(fh, meta.Size, sidecar)
	if _, err := acc.SeekToBlock(resumeBlock); err != nil {
		_ = ch.Close()
		return nil, s.reportError(err)
	}

	cleanup := s.cleanupFor(meta.Hash, sidecar)
	t := xfer.New(xfer.In, ch, acc, s.log, s.removeInbound, cleanup)

	s.mu.Lock()
	s.inbound[t.ID] = t
	s.mu.Unlock()

	if err := t.Run(); err != nil {
		s.removeInbound(t)
		return nil, s.reportError(err)
	}
	return t, nil
}

// reportError surfaces err to the user-facing prompt collaborator before
// returning it, so a caller that only checks the returned error still
// gets the message displayed — parameter exchange and resolution
// failures are reported, not retried.
func (s *Session) reportError(err error) error {
	s.prompts.ReportError(err.Error())
	return err
}

// cleanupFor builds the onCompleted callback that deletes a finished
// transfer's sidecar once its content has been fully received.
func (s *Session) cleanupFor(hash []byte, sidecar *blockio.Sidecar) func() error {
	return func() error {
		if sidecar != nil {
			_ = sidecar.Close()
		}
		metaFolder, err := s.root.GetOrCreateSub(constants.MetadataDir)
		if err != nil {
			return err
		}
		return metaFolder.DeleteFile(hex.EncodeToString(hash))
	}
}

func (s *Session) removeInbound(t *xfer.Transfer) {
	s.mu.Lock()
	delete(s.inbound, t.ID)
	s.mu.Unlock()
}

func (s *Session) removeOutbound(t *xfer.Transfer) {
	s.mu.Lock()
	delete(s.outbound, t.ID)
	s.mu.Unlock()
}

// Inbound and Outbound return snapshots of the currently tracked transfers.
func (s *Session) Inbound() []*xfer.Transfer  { return s.snapshot(s.inbound) }
func (s *Session) Outbound() []*xfer.Transfer { return s.snapshot(s.outbound) }

func (s *Session) snapshot(set map[uuid.UUID]*xfer.Transfer) []*xfer.Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*xfer.Transfer, 0, len(set))
	for _, t := range set {
		out = append(out, t)
	}
	return out
}

// Stop cancels every inbound and outbound transfer. Each transfer removes
// itself from its set as it tears down, so the sets drain on their own;
// Stop does not wait for that to happen.
func (s *Session) Stop() {
	s.mu.Lock()
	s.stopped = true
	transfers := make([]*xfer.Transfer, 0, len(s.inbound)+len(s.outbound))
	for _, t := range s.inbound {
		transfers = append(transfers, t)
	}
	for _, t := range s.outbound {
		transfers = append(transfers, t)
	}
	s.mu.Unlock()

	for _, t := range transfers {
		t.Cancel()
	}
}

// Stopped reports whether Stop has been called on this session.
func (s *Session) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// readOnlyAdapter lets a collab.PickedFile (read-only) satisfy
// blockio.ReadSeekCloser for the send-side accessor, which never calls
// Write.
type readOnlyAdapter struct {
	collab.PickedFile
}

func (readOnlyAdapter) Write([]byte) (int, error) {
	return 0, xerr.New(xerr.Io, "send-side accessor attempted a write")
}

// hashFile computes the MD5 identity hash of file's full content, then
// rewinds it to the start so streaming can begin (or resume) from byte 0.
func hashFile(file collab.PickedFile) ([]byte, error) {
	h := md5.New()
	if _, err := io.Copy(h, file); err != nil {
		return nil, err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
