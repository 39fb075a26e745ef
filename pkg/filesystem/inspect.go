package filesystem

import (
	"errors"
	"io/fs"
	"path/filepath"
)

// Exists reports whether name exists without following a final symlink
func Exists(fsys FS, name string) (bool, error) {
	_, err := fsys.Lstat(name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// ModTime returns the modification time of name in nanoseconds, following symlinks
func ModTime(fsys FS, name string) (int64, error) {
	info, err := fsys.Stat(name)
	if err != nil {
		return 0, err
	}
	return info.ModTime().UnixNano(), nil
}

// LModTime returns the modification time of name itself in nanoseconds
func LModTime(fsys FS, name string) (int64, error) {
	info, err := fsys.Lstat(name)
	if err != nil {
		return 0, err
	}
	return info.ModTime().UnixNano(), nil
}

// IsSymlink reports whether info describes a symbolic link
func IsSymlink(info fs.FileInfo) bool {
	return info.Mode()&fs.ModeSymlink != 0
}

// NearestExisting walks up from name until it finds a path that exists.
// It returns the existing path and its ownership.
func NearestExisting(fsys FS, name string) (string, Ownership, error) {
	current := filepath.Clean(name)
	for {
		own, err := fsys.Owner(current)
		if err == nil {
			return current, own, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", Ownership{}, err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", Ownership{}, err
		}
		current = parent
	}
}

// SameTarget reports whether link resolves to the same canonical path as
// target. A dangling link or a missing target never matches.
func SameTarget(fsys FS, link, target string) bool {
	resolved, err := fsys.EvalSymlinks(link)
	if err != nil {
		return false
	}
	want, err := fsys.EvalSymlinks(target)
	if err != nil {
		want = filepath.Clean(target)
	}
	return resolved == want
}

// IsDangling reports whether name is a symlink whose target does not exist
func IsDangling(fsys FS, name string) bool {
	info, err := fsys.Lstat(name)
	if err != nil || !IsSymlink(info) {
		return false
	}
	_, err = fsys.Stat(name)
	return errors.Is(err, fs.ErrNotExist)
}
