package main

import (
	"os"
	"path/filepath"

	"go_lan_transfer/collab"
	"go_lan_transfer/xerr"
)

// pickFile opens path directly off disk for the send-side accessor. The
// peer binary's REPL takes the path as a command argument (send <host>
// <port> <path>) rather than through an OS picker dialog, so there's no
// collab.FilePicker implementation behind it — the -root flag itself is
// handed to fleet.Config.Root directly as the collab.Folder.
func pickFile(path string) (collab.PickedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerr.Wrap(xerr.FileUnavailable, err, "open file")
	}
	return &osPickedFile{File: f, name: filepath.Base(path)}, nil
}

type osPickedFile struct {
	*os.File
	name string
}

func (f *osPickedFile) Name() string { return f.name }

func (f *osPickedFile) Size() (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, xerr.Wrap(xerr.FileUnavailable, err, "stat file")
	}
	return info.Size(), nil
}
