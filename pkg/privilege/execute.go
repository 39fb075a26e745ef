package privilege

import (
	"github.com/arthur-debert/declarix/pkg/errors"
	"github.com/arthur-debert/declarix/pkg/filesystem"
)

// Execute performs the primitive named by r on fsys. It is shared by the
// in-process path of the Boundary and by the helper binary.
func Execute(fsys filesystem.FS, r Request) error {
	switch r.Op {
	case OpSymlink:
		return fsys.Symlink(r.Source, r.Target)
	case OpHardlink:
		return fsys.Link(r.Source, r.Target)
	case OpCopy:
		return fsys.CopyFile(r.Source, r.Target)
	case OpCreateDir:
		return fsys.Mkdir(r.Target)
	case OpCreateDirAll:
		return fsys.MkdirAll(r.Target)
	case OpRemoveFile:
		return fsys.RemoveFile(r.Target)
	case OpRemoveDir:
		return fsys.RemoveDir(r.Target)
	default:
		return errors.Newf(errors.ErrInvalidOperation, "unknown operation %q", r.Op)
	}
}
