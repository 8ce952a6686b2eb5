package main

import (
	"os"
	"path/filepath"
	"strings"

	"go_lan_transfer/collab"
	"go_lan_transfer/xerr"
)

// osFolder implements collab.Folder directly atop os and path/filepath,
// rooted at dir and guarded against any resolved path straying outside it.
type osFolder struct {
	dir string
}

// newOSFolder creates dir (and any missing parents) and returns a Folder
// rooted there.
func newOSFolder(dir string) (*osFolder, error) {
	clean := filepath.Clean(dir)
	if err := os.MkdirAll(clean, 0o755); err != nil {
		return nil, xerr.Wrap(xerr.Io, err, "create root")
	}
	return &osFolder{dir: clean}, nil
}

// resolve joins name onto the folder's root and rejects any path that
// would escape it, the same guard a directory-walking file server needs
// against a name containing "..".
func (f *osFolder) resolve(name string) (string, error) {
	full := filepath.Join(f.dir, filepath.FromSlash(name))
	if !strings.HasPrefix(full, f.dir+string(os.PathSeparator)) && full != f.dir {
		return "", xerr.New(xerr.Io, "path escapes root: "+name)
	}
	return full, nil
}

func (f *osFolder) GetOrCreateSub(name string) (collab.Folder, error) {
	path, err := f.resolve(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, xerr.Wrap(xerr.Io, err, "create subfolder")
	}
	return &osFolder{dir: path}, nil
}

func (f *osFolder) GetOrCreateFile(name string) (collab.FileHandle, error) {
	path, err := f.resolve(name)
	if err != nil {
		return nil, err
	}
	fh, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, xerr.Wrap(xerr.Io, err, "open file")
	}
	return &osFile{File: fh, name: name}, nil
}

func (f *osFolder) CreateFile(name string) (collab.FileHandle, error) {
	path, err := f.resolve(name)
	if err != nil {
		return nil, err
	}
	fh, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, xerr.Wrap(xerr.Io, err, "create file")
	}
	return &osFile{File: fh, name: name}, nil
}

func (f *osFolder) DeleteFile(name string) error {
	path, err := f.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return xerr.Wrap(xerr.Io, err, "delete file")
	}
	return nil
}

func (f *osFolder) FileExists(name string) (bool, error) {
	path, err := f.resolve(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, xerr.Wrap(xerr.Io, err, "stat file")
}

func (f *osFolder) FilesExist(names []string) ([]bool, error) {
	out := make([]bool, len(names))
	for i, n := range names {
		exists, err := f.FileExists(n)
		if err != nil {
			return nil, err
		}
		out[i] = exists
	}
	return out, nil
}

// osFile adapts *os.File to collab.FileHandle, which needs Name() to
// return the caller-given relative name rather than os.File's own
// absolute-path Name().
type osFile struct {
	*os.File
	name string
}

func (f *osFile) Name() string { return f.name }
