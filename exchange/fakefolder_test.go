package exchange

import (
	"bytes"
	"io"

	"go_lan_transfer/collab"
	"go_lan_transfer/xerr"
)

// fakeFolder is an in-memory collab.Folder for exercising exchange logic
// without touching a real filesystem.
type fakeFolder struct {
	files map[string]*fakeFile
	subs  map[string]*fakeFolder
}

func newFakeFolder() *fakeFolder {
	return &fakeFolder{files: map[string]*fakeFile{}, subs: map[string]*fakeFolder{}}
}

func (f *fakeFolder) GetOrCreateSub(name string) (collab.Folder, error) {
	if sub, ok := f.subs[name]; ok {
		return sub, nil
	}
	sub := newFakeFolder()
	f.subs[name] = sub
	return sub, nil
}

func (f *fakeFolder) GetOrCreateFile(name string) (collab.FileHandle, error) {
	if fh, ok := f.files[name]; ok {
		return fh, nil
	}
	fh := &fakeFile{name: name, buf: &bytes.Buffer{}}
	f.files[name] = fh
	return fh, nil
}

func (f *fakeFolder) CreateFile(name string) (collab.FileHandle, error) {
	fh := &fakeFile{name: name, buf: &bytes.Buffer{}}
	f.files[name] = fh
	return fh, nil
}

func (f *fakeFolder) DeleteFile(name string) error {
	delete(f.files, name)
	return nil
}

func (f *fakeFolder) FileExists(name string) (bool, error) {
	_, ok := f.files[name]
	return ok, nil
}

func (f *fakeFolder) FilesExist(names []string) ([]bool, error) {
	out := make([]bool, len(names))
	for i, n := range names {
		_, out[i] = f.files[n]
	}
	return out, nil
}

// fakeFile is a simple in-memory seekable file for tests.
type fakeFile struct {
	name string
	data []byte
	pos  int64
	buf  *bytes.Buffer // unused, kept for future growth
}

func (fh *fakeFile) Read(p []byte) (int, error) {
	if fh.pos >= int64(len(fh.data)) {
		return 0, io.EOF
	}
	n := copy(p, fh.data[fh.pos:])
	fh.pos += int64(n)
	return n, nil
}

func (fh *fakeFile) Write(p []byte) (int, error) {
	end := fh.pos + int64(len(p))
	if end > int64(len(fh.data)) {
		grown := make([]byte, end)
		copy(grown, fh.data)
		fh.data = grown
	}
	copy(fh.data[fh.pos:end], p)
	fh.pos = end
	return len(p), nil
}

func (fh *fakeFile) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = fh.pos
	case io.SeekEnd:
		base = int64(len(fh.data))
	default:
		return 0, xerr.New(xerr.Io, "bad whence")
	}
	fh.pos = base + offset
	return fh.pos, nil
}

func (fh *fakeFile) Close() error { return nil }
func (fh *fakeFile) Name() string { return fh.name }
func (fh *fakeFile) Sync() error  { return nil }

func (fh *fakeFile) Truncate(size int64) error {
	if size <= int64(len(fh.data)) {
		fh.data = fh.data[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, fh.data)
	fh.data = grown
	return nil
}

// fakePrompts is a scripted collab.UserPrompts for tests.
type fakePrompts struct {
	resolution collab.ConflictResolution
}

func (p *fakePrompts) ConfirmTransfer(string, int64) bool { return true }
func (p *fakePrompts) ResolveConflict(string) collab.ConflictResolution {
	return p.resolution
}
func (p *fakePrompts) ReportError(string) {}
