package frame

import (
	"encoding/binary"
	"io"
	"sync/atomic"

	"go.uber.org/zap"

	"go_lan_transfer/constants"
	"go_lan_transfer/xerr"
)

// Channel wraps a reliable ordered byte stream (typically a TCP
// connection) with length-prefixed typed message framing. It never
// correlates sends and receives — callers guarantee there is at most one
// outstanding send and at most one outstanding receive at a time.
type Channel struct {
	stream io.ReadWriteCloser
	log    *zap.Logger

	closed atomic.Bool

	// recvBuf is the single reusable buffer backing every Receive; its
	// contents are only valid until the next Receive call.
	recvBuf []byte
}

// New wraps stream in a framed channel.
func New(stream io.ReadWriteCloser, log *zap.Logger) *Channel {
	if log == nil {
		log = zap.NewNop()
	}
	return &Channel{
		stream:  stream,
		log:     log,
		recvBuf: make([]byte, constants.BlockSize),
	}
}

// Send writes one frame: a 5-byte header followed by payload. Both writes
// loop until fully sent.
func (c *Channel) Send(t MessageType, payload []byte) error {
	if c.closed.Load() {
		return xerr.New(xerr.Disposed, "send on closed channel")
	}

	header := make([]byte, HeaderSize)
	header[0] = byte(t)
	binary.LittleEndian.PutUint32(header[1:], uint32(len(payload)))

	if err := c.writeFull(header); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	return c.writeFull(payload)
}

// Receive reads exactly one frame. If the declared size exceeds
// constants.BlockSize it fails with a Protocol error without draining the
// payload from the stream — the channel must be discarded at that point.
func (c *Channel) Receive() (Frame, error) {
	if c.closed.Load() {
		return Frame{}, xerr.New(xerr.Disposed, "receive on closed channel")
	}

	header := make([]byte, HeaderSize)
	if err := c.readFull(header); err != nil {
		return Frame{}, err
	}

	msgType := MessageType(header[0])
	size := binary.LittleEndian.Uint32(header[1:])

	if size > constants.BlockSize {
		return Frame{}, xerr.New(xerr.Protocol, "frame too large")
	}

	payload := c.recvBuf[:size]
	if size > 0 {
		if err := c.readFull(payload); err != nil {
			return Frame{}, err
		}
	}

	return Frame{Type: msgType, Payload: payload}, nil
}

// Close marks the channel disposed and closes the underlying stream. The
// channel must not be reused afterwards.
func (c *Channel) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.stream.Close()
}

func (c *Channel) writeFull(buf []byte) error {
	written := 0
	for written < len(buf) {
		n, err := c.stream.Write(buf[written:])
		if err != nil {
			c.closed.Store(true)
			return xerr.Wrap(xerr.Io, err, "write failed")
		}
		if n == 0 {
			c.closed.Store(true)
			return xerr.New(xerr.Io, "remote closed during write")
		}
		written += n
	}
	return nil
}

func (c *Channel) readFull(buf []byte) error {
	read := 0
	for read < len(buf) {
		n, err := c.stream.Read(buf[read:])
		if n == 0 && err == nil {
			c.closed.Store(true)
			return xerr.New(xerr.Io, "remote closed during read")
		}
		read += n
		if err != nil {
			if read == len(buf) {
				return nil
			}
			c.closed.Store(true)
			return xerr.Wrap(xerr.Io, err, "read failed")
		}
	}
	return nil
}
