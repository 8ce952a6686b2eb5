package exchange

import (
	"encoding/hex"
	"fmt"
	"strings"

	"go_lan_transfer/blockio"
	"go_lan_transfer/collab"
	"go_lan_transfer/constants"
	"go_lan_transfer/xerr"
)

// ResolveFile implements receiver-side on-disk file resolution: open or
// create the metadata sidecar keyed by hex(hash), and either resume against
// a previously recorded file or resolve a name conflict for a fresh receive.
func ResolveFile(root collab.Folder, receivedFileName string, hash []byte, prompts collab.UserPrompts) (collab.FileHandle, *blockio.Sidecar, int32, error) {
	metaFolder, err := root.GetOrCreateSub(constants.MetadataDir)
	if err != nil {
		return nil, nil, 0, xerr.Wrap(xerr.Io, err, "open metadata folder")
	}

	sidecarHandle, err := metaFolder.GetOrCreateFile(hex.EncodeToString(hash))
	if err != nil {
		return nil, nil, 0, xerr.Wrap(xerr.Io, err, "open sidecar")
	}
	sidecar := blockio.WrapSidecar(sidecarHandle)

	hasResumeState, err := sidecar.HasResumeState()
	if err != nil {
		return nil, nil, 0, err
	}

	if hasResumeState {
		lastWrittenBlock, actualFileName, err := sidecar.Read()
		if err != nil {
			return nil, nil, 0, err
		}
		exists, err := root.FileExists(actualFileName)
		if err != nil {
			return nil, nil, 0, xerr.Wrap(xerr.Io, err, "check resume file existence")
		}
		if exists {
			fh, err := root.GetOrCreateFile(actualFileName)
			if err != nil {
				return nil, nil, 0, xerr.Wrap(xerr.Io, err, "open resume file")
			}
			return fh, sidecar, lastWrittenBlock, nil
		}
		// Sidecar pointed at a file that's since vanished; fall through
		// to fresh resolution below, same as having no resume state.
	}

	resolvedName, err := ResolveName(root, receivedFileName, prompts)
	if err != nil {
		return nil, nil, 0, err
	}

	fh, err := root.CreateFile(resolvedName)
	if err != nil {
		return nil, nil, 0, xerr.Wrap(xerr.Io, err, "create file")
	}

	if err := sidecar.WriteFileName(resolvedName); err != nil {
		return nil, nil, 0, err
	}
	if err := sidecar.WriteLastBlock(0); err != nil {
		return nil, nil, 0, err
	}

	return fh, sidecar, 0, nil
}

// ResolveName implements conflict-resolution delegation: if candidate
// already exists in root, ask prompts how to proceed.
func ResolveName(root collab.Folder, candidate string, prompts collab.UserPrompts) (string, error) {
	exists, err := root.FileExists(candidate)
	if err != nil {
		return "", xerr.Wrap(xerr.Io, err, "check name conflict")
	}
	if !exists {
		return candidate, nil
	}

	switch prompts.ResolveConflict(candidate) {
	case collab.Overwrite:
		if err := root.DeleteFile(candidate); err != nil {
			return "", xerr.Wrap(xerr.Io, err, "delete existing file")
		}
		return candidate, nil
	case collab.Rename:
		return probeUniqueName(root, candidate)
	case collab.Abort:
		return "", xerr.New(xerr.LocalCancelled, "user aborted name conflict")
	default:
		return "", xerr.New(xerr.LocalCancelled, "unknown conflict resolution")
	}
}

// probeUniqueName generates "name (n).ext" candidates, probing in batches
// of 5, and returns the lowest n whose name is available.
func probeUniqueName(root collab.Folder, original string) (string, error) {
	base, ext := splitExt(original)

	for n := 1; ; n += 5 {
		batch := make([]string, 5)
		for i := 0; i < 5; i++ {
			batch[i] = fmt.Sprintf("%s (%d)%s", base, n+i, ext)
		}
		exist, err := root.FilesExist(batch)
		if err != nil {
			return "", xerr.Wrap(xerr.Io, err, "probe rename candidates")
		}
		for i, taken := range exist {
			if !taken {
				return batch[i], nil
			}
		}
	}
}

func splitExt(name string) (base, ext string) {
	if idx := strings.LastIndex(name, "."); idx > 0 {
		return name[:idx], name[idx:]
	}
	return name, ""
}
