// Package collab defines the interfaces the transfer core calls out to for
// everything it doesn't own itself: OS file/folder pickers, user
// confirmation dialogs, and folder-scoped file access. The core never
// mutates files outside the root handed to it through Folder.
package collab

import "io"

// ConflictResolution is the user's answer to a name-conflict prompt.
type ConflictResolution int

const (
	Overwrite ConflictResolution = iota
	Rename
	Abort
)

// UserPrompts asks the user to confirm things the core cannot decide on
// its own.
type UserPrompts interface {
	ConfirmTransfer(fileName string, size int64) (accept bool)
	ResolveConflict(fileName string) ConflictResolution
	ReportError(message string)
}

// PickedFile is an opaque handle to a file chosen through a FilePicker,
// readable and seekable for the resumable send path.
type PickedFile interface {
	io.ReadSeekCloser
	Name() string
	Size() (int64, error)
}

// FilePicker lets the out-of-scope UI choose files to send and a folder
// to receive into.
type FilePicker interface {
	PickFiles() (files []PickedFile, cancelled bool, err error)
	PickFolder() (folder Folder, cancelled bool, err error)
}

// FileHandle is an opaque reference to a file inside a Folder.
type FileHandle interface {
	io.ReadWriteSeeker
	io.Closer
	Name() string
	Truncate(size int64) error
	Sync() error
}

// Folder is a directory-scoped handle the core uses for all on-disk
// access; it never reaches outside the root it was given.
type Folder interface {
	// GetOrCreateSub returns a Folder for the named subdirectory,
	// creating it if absent.
	GetOrCreateSub(name string) (Folder, error)
	// GetOrCreateFile opens the named file for read/write, creating it
	// (empty) if absent.
	GetOrCreateFile(name string) (FileHandle, error)
	// CreateFile creates (truncating if present) the named file for
	// read/write.
	CreateFile(name string) (FileHandle, error)
	// DeleteFile removes the named file if it exists.
	DeleteFile(name string) error
	// FileExists reports whether name exists in this folder.
	FileExists(name string) (exists bool, err error)
	// FilesExist reports existence for a batch of names, in order.
	FilesExist(names []string) ([]bool, error)
}
