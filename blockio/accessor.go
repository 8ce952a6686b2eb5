// Package blockio implements fixed-size block file I/O plus the crash-safe
// sidecar that lets a receive resume at the last durably written block.
package blockio

import (
	"io"
	"os"

	"go_lan_transfer/constants"
	"go_lan_transfer/xerr"
)

// ReadSeekCloser is the minimal file-like handle the accessor needs; it is
// satisfied by *os.File and lets callers hand in a Folder-backed handle
// instead, without the core depending on the os package directly at the
// call site.
type ReadSeekCloser interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
}

// Accessor performs fixed-size block reads and writes against an open file
// handle, optionally persisting write progress through a Sidecar.
type Accessor struct {
	file    ReadSeekCloser
	size    int32
	sidecar *Sidecar

	lastProcessedBlock int32
	seekable           bool

	progress chan int32
}

// Open wraps an already-open file handle. declaredSize is the file's
// declared size; it only feeds SeekToBlock's at-EOF result and is not
// enforced on reads or writes. sidecar
// may be nil for a send-side accessor that has no resume state to persist.
func Open(file ReadSeekCloser, declaredSize int32, sidecar *Sidecar) *Accessor {
	_, seekErr := file.Seek(0, io.SeekCurrent)
	return &Accessor{
		file:     file,
		size:     declaredSize,
		sidecar:  sidecar,
		seekable: seekErr == nil,
		progress: make(chan int32, 1),
	}
}

// Progress returns a single-subscriber channel that receives the latest
// lastProcessedBlock value after every block write. It is closed when the
// accessor is closed.
func (a *Accessor) Progress() <-chan int32 {
	return a.progress
}

// SeekToBlock positions the file at block n*BlockSize, if the underlying
// handle is seekable (non-seekable handles force n=0), and updates
// lastProcessedBlock. It returns whether the resulting position is at EOF.
func (a *Accessor) SeekToBlock(n int32) (atEOF bool, err error) {
	if !a.seekable {
		n = 0
	}

	offset := int64(n) * constants.BlockSize
	if a.seekable {
		if _, err := a.file.Seek(offset, io.SeekStart); err != nil {
			return false, xerr.Wrap(xerr.Io, err, "seek to block")
		}
	}
	a.lastProcessedBlock = n

	return offset >= int64(a.size), nil
}

// ReadNextBlock reads up to BlockSize bytes, returning a view over the
// bytes actually read (zero-length at EOF), and increments
// lastProcessedBlock.
func (a *Accessor) ReadNextBlock() ([]byte, error) {
	buf := make([]byte, constants.BlockSize)
	n, err := a.file.Read(buf)
	if err != nil && err != io.EOF {
		return nil, xerr.Wrap(xerr.Io, err, "read block")
	}
	a.lastProcessedBlock++
	return buf[:n], nil
}

// WriteNextBlock appends data at the current position, flushes the new
// lastProcessedBlock to the sidecar (if present) before incrementing it in
// memory, then increments it. That ordering means a crash mid-write leaves
// the sidecar pointing at the block that must be re-requested, never past it.
func (a *Accessor) WriteNextBlock(data []byte) error {
	if _, err := a.file.Write(data); err != nil {
		return xerr.Wrap(xerr.Io, err, "write block")
	}

	if a.sidecar != nil {
		if err := a.sidecar.WriteLastBlock(a.lastProcessedBlock + 1); err != nil {
			return err
		}
	}
	a.lastProcessedBlock++

	select {
	case a.progress <- a.lastProcessedBlock:
	default:
		// Single-subscriber channel with no reader waiting; progress is a
		// monotonic counter so it's fine for the observer to miss a tick.
	}

	return nil
}

// LastProcessedBlock returns the current block cursor.
func (a *Accessor) LastProcessedBlock() int32 {
	return a.lastProcessedBlock
}

// Close closes the underlying file handle and the progress channel. The
// sidecar, if any, is not closed here — its lifecycle belongs to the
// caller (it is deleted on success, kept on pause/failure).
func (a *Accessor) Close() error {
	close(a.progress)
	if err := a.file.Close(); err != nil {
		return xerr.Wrap(xerr.Io, err, "close file")
	}
	return nil
}

var _ ReadSeekCloser = (*os.File)(nil)
