package blockio

import (
	"encoding/binary"
	"io"
	"os"

	"go_lan_transfer/xerr"
)

// sidecarFile is the minimal handle Sidecar needs. *os.File satisfies it,
// as does any collab.FileHandle the file-resolution layer hands in.
type sidecarFile interface {
	io.ReadWriteSeeker
	io.Closer
	Truncate(size int64) error
	Sync() error
}

// Sidecar persists the small per-transfer resume record: a 4-byte little
// endian counter at offset 0 followed by the UTF-8 file name filling the
// remainder of the file. A freshly created sidecar has length 0; this
// implementation treats "length > 4" as "has usable resume state" (see
// DESIGN.md for the reasoning).
type Sidecar struct {
	file sidecarFile
}

// OpenSidecar opens (creating if absent) the sidecar file at path.
func OpenSidecar(path string) (*Sidecar, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, xerr.Wrap(xerr.Io, err, "open sidecar")
	}
	return &Sidecar{file: f}, nil
}

// WrapSidecar builds a Sidecar around an already-open handle, e.g. one
// obtained from a collab.Folder.
func WrapSidecar(f sidecarFile) *Sidecar {
	return &Sidecar{file: f}
}

func (s *Sidecar) size() (int64, error) {
	size, err := s.file.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, xerr.Wrap(xerr.Io, err, "seek sidecar")
	}
	return size, nil
}

// HasResumeState reports whether the sidecar carries more than just the
// counter, i.e. there is a previously recorded file name to resume against.
func (s *Sidecar) HasResumeState() (bool, error) {
	size, err := s.size()
	if err != nil {
		return false, err
	}
	return size > 4, nil
}

// Read returns the persisted last-written-block counter and file name.
// Callers should first check HasResumeState.
func (s *Sidecar) Read() (lastWrittenBlock int32, fileName string, err error) {
	size, err := s.size()
	if err != nil {
		return 0, "", err
	}
	if size < 4 {
		return 0, "", xerr.New(xerr.Io, "sidecar too short to contain a counter")
	}

	if _, err = s.file.Seek(0, io.SeekStart); err != nil {
		return 0, "", xerr.Wrap(xerr.Io, err, "seek sidecar")
	}

	buf := make([]byte, size)
	if _, err = io.ReadFull(s.file, buf); err != nil {
		return 0, "", xerr.Wrap(xerr.Io, err, "read sidecar")
	}

	lastWrittenBlock = int32(binary.LittleEndian.Uint32(buf[:4]))
	fileName = string(buf[4:])
	return lastWrittenBlock, fileName, nil
}

// WriteLastBlock seeks to 0, writes the 4 LE bytes of n, and flushes to
// durable storage. Callers must call this, and have it return, before
// incrementing their in-memory block counter — that ordering is what makes
// resume crash-safe.
func (s *Sidecar) WriteLastBlock(n int32) error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return xerr.Wrap(xerr.Io, err, "seek sidecar")
	}
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(n))
	if _, err := s.file.Write(buf); err != nil {
		return xerr.Wrap(xerr.Io, err, "write sidecar counter")
	}
	if err := s.file.Sync(); err != nil {
		return xerr.Wrap(xerr.Io, err, "flush sidecar")
	}
	return nil
}

// WriteFileName truncates the sidecar to 4+len(name) and writes name at
// offset 4, flushing to durable storage.
func (s *Sidecar) WriteFileName(name string) error {
	if err := s.file.Truncate(int64(4 + len(name))); err != nil {
		return xerr.Wrap(xerr.Io, err, "truncate sidecar")
	}
	if _, err := s.file.Seek(4, io.SeekStart); err != nil {
		return xerr.Wrap(xerr.Io, err, "seek sidecar")
	}
	if _, err := s.file.Write([]byte(name)); err != nil {
		return xerr.Wrap(xerr.Io, err, "write sidecar name")
	}
	if err := s.file.Sync(); err != nil {
		return xerr.Wrap(xerr.Io, err, "flush sidecar")
	}
	return nil
}

// Close closes the underlying file handle without deleting it.
func (s *Sidecar) Close() error {
	return s.file.Close()
}
