package filesystem

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// FS is the set of filesystem operations used by declarix
type FS interface {
	// Inspection
	Lstat(name string) (fs.FileInfo, error)
	Stat(name string) (fs.FileInfo, error)
	EvalSymlinks(name string) (string, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	WalkDir(root string, fn fs.WalkDirFunc) error
	Owner(name string) (Ownership, error)

	// Primitives
	Symlink(oldname, newname string) error
	Link(oldname, newname string) error
	CopyFile(src, dst string) error
	Mkdir(path string) error
	MkdirAll(path string) error
	RemoveFile(path string) error
	RemoveDir(path string) error
}

// Ownership is the subset of stat(2) used for privilege and device checks
type Ownership struct {
	UID uint32
	GID uint32
	Dev uint64
}

// DirPerm is the mode used for directories created by declarix
const DirPerm fs.FileMode = 0755

// osFS implements FS using the OS filesystem
type osFS struct{}

// NewOS creates a new OS filesystem implementation
func NewOS() FS {
	return &osFS{}
}

func (o *osFS) Lstat(name string) (fs.FileInfo, error) {
	return os.Lstat(name)
}

func (o *osFS) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

func (o *osFS) EvalSymlinks(name string) (string, error) {
	return filepath.EvalSymlinks(name)
}

func (o *osFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return os.ReadDir(name)
}

func (o *osFS) WalkDir(root string, fn fs.WalkDirFunc) error {
	return filepath.WalkDir(root, fn)
}

func (o *osFS) Owner(name string) (Ownership, error) {
	var st unix.Stat_t
	if err := unix.Lstat(name, &st); err != nil {
		return Ownership{}, &fs.PathError{Op: "lstat", Path: name, Err: err}
	}
	return Ownership{UID: st.Uid, GID: st.Gid, Dev: uint64(st.Dev)}, nil
}

func (o *osFS) Symlink(oldname, newname string) error {
	return os.Symlink(oldname, newname)
}

func (o *osFS) Link(oldname, newname string) error {
	return os.Link(oldname, newname)
}

// CopyFile copies bytes and permission bits from src to dst, truncating
// dst if it exists, then stamps dst with the modification time of src.
func (o *osFS) CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("copy %s: not a regular file", src)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func (o *osFS) Mkdir(path string) error {
	return os.Mkdir(path, DirPerm)
}

func (o *osFS) MkdirAll(path string) error {
	return os.MkdirAll(path, DirPerm)
}

// RemoveFile removes a file or symlink and refuses directories
func (o *osFS) RemoveFile(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return &fs.PathError{Op: "remove", Path: path, Err: unix.EISDIR}
	}
	return os.Remove(path)
}

// RemoveDir removes an empty directory and refuses anything else
func (o *osFS) RemoveDir(path string) error {
	if err := unix.Rmdir(path); err != nil {
		return &fs.PathError{Op: "rmdir", Path: path, Err: err}
	}
	return nil
}
