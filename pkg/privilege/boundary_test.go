// pkg/privilege/boundary_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: Real filesystem (temp dirs), fake escalator
// PURPOSE: In-process vs helper decision and escalation contract

package privilege_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/declarix/pkg/errors"
	"github.com/arthur-debert/declarix/pkg/filesystem"
	"github.com/arthur-debert/declarix/pkg/privilege"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEscalator struct {
	calls []privilege.Request
	err   error
}

func (f *fakeEscalator) Escalate(_ context.Context, r privilege.Request) error {
	f.calls = append(f.calls, r)
	return f.err
}

// countingFS records every primitive that reaches the real filesystem
type countingFS struct {
	filesystem.FS
	primitives []string
}

func (c *countingFS) Symlink(oldname, newname string) error {
	c.primitives = append(c.primitives, "symlink")
	return c.FS.Symlink(oldname, newname)
}

func (c *countingFS) RemoveFile(path string) error {
	c.primitives = append(c.primitives, "remove-file")
	return c.FS.RemoveFile(path)
}

func (c *countingFS) MkdirAll(path string) error {
	c.primitives = append(c.primitives, "create-dir-all")
	return c.FS.MkdirAll(path)
}

func TestPerformInProcessWhenOwned(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	fsys := &countingFS{FS: filesystem.NewOS()}
	esc := &fakeEscalator{}
	b := privilege.New(fsys, esc)

	require.NoError(t, b.Perform(context.Background(), privilege.Symlink(src, dst)))

	assert.Equal(t, []string{"symlink"}, fsys.primitives)
	assert.Empty(t, esc.calls)
	target, err := os.Readlink(dst)
	require.NoError(t, err)
	assert.Equal(t, src, target)
}

func TestPerformEscalatesForForeignOwner(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	fsys := &countingFS{FS: filesystem.NewOS()}
	esc := &fakeEscalator{}
	current := privilege.CurrentIdentity()
	foreign := privilege.Identity{UID: current.UID + 1, GID: current.GID}
	b := privilege.New(fsys, esc, privilege.WithIdentity(foreign))

	require.NoError(t, b.Perform(context.Background(), privilege.Symlink(src, dst)))

	assert.Empty(t, fsys.primitives, "in-process primitive must not run")
	require.Len(t, esc.calls, 1)
	assert.Equal(t, privilege.OpSymlink, esc.calls[0].Op)
	assert.Equal(t, []string{src, dst}, esc.calls[0].Args())

	_, err := os.Lstat(dst)
	assert.True(t, os.IsNotExist(err), "fake helper performs nothing")
}

// ownerFS reports a foreign owner for selected paths
type ownerFS struct {
	*countingFS
	foreign map[string]bool
}

func (o *ownerFS) Owner(name string) (filesystem.Ownership, error) {
	own, err := o.countingFS.Owner(name)
	if err == nil && o.foreign[name] {
		own.UID++
	}
	return own, err
}

func TestPerformDecidesOnTheTargetOwner(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	tests := []struct {
		name      string
		foreign   string
		escalated bool
	}{
		{"foreign source, owned target directory", src, false},
		{"owned source, foreign target directory", dir, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = os.Remove(dst)
			fsys := &ownerFS{countingFS: &countingFS{FS: filesystem.NewOS()}, foreign: map[string]bool{tt.foreign: true}}
			esc := &fakeEscalator{}
			b := privilege.New(fsys, esc)

			require.NoError(t, b.Perform(context.Background(), privilege.Symlink(src, dst)))
			if tt.escalated {
				assert.Empty(t, fsys.primitives)
				assert.Len(t, esc.calls, 1)
			} else {
				assert.Equal(t, []string{"symlink"}, fsys.primitives)
				assert.Empty(t, esc.calls)
			}
		})
	}
}

func TestPerformChecksNearestExistingAncestor(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a", "b", "c")

	fsys := &countingFS{FS: filesystem.NewOS()}
	esc := &fakeEscalator{}
	b := privilege.New(fsys, esc)

	require.NoError(t, b.Perform(context.Background(), privilege.CreateDirAll(target)))
	assert.Equal(t, []string{"create-dir-all"}, fsys.primitives)
	assert.Empty(t, esc.calls)
	assert.DirExists(t, target)
}

func TestPerformSurfacesEscalationFailure(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	esc := &fakeEscalator{err: fmt.Errorf("sudo: a password is required")}
	current := privilege.CurrentIdentity()
	b := privilege.New(filesystem.NewOS(), esc, privilege.WithIdentity(privilege.Identity{UID: current.UID + 1, GID: current.GID + 1}))

	err := b.Perform(context.Background(), privilege.RemoveFile(file))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrPermission))
	assert.FileExists(t, file)
}

func TestPerformRejectsInvalidRequest(t *testing.T) {
	esc := &fakeEscalator{}
	b := privilege.New(filesystem.NewOS(), esc)

	err := b.Perform(context.Background(), privilege.RemoveFile("relative/path"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidOperation))
	assert.Empty(t, esc.calls)
}

func TestPerformWithoutEscalator(t *testing.T) {
	dir := t.TempDir()
	current := privilege.CurrentIdentity()
	b := privilege.New(filesystem.NewOS(), nil, privilege.WithIdentity(privilege.Identity{UID: current.UID + 1}))

	err := b.Perform(context.Background(), privilege.CreateDir(filepath.Join(dir, "x")))
	assert.True(t, errors.IsErrorCode(err, errors.ErrPermission))
}

func TestServe(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0644))

	t.Run("performs one primitive", func(t *testing.T) {
		var stderr bytes.Buffer
		dst := filepath.Join(dir, "copied")
		code := privilege.Serve([]string{"copy", src, dst}, filesystem.NewOS(), &stderr)
		assert.Equal(t, privilege.ExitOK, code, stderr.String())
		content, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(content))
	})

	t.Run("protocol violation", func(t *testing.T) {
		var stderr bytes.Buffer
		code := privilege.Serve([]string{"exec", "/bin/sh"}, filesystem.NewOS(), &stderr)
		assert.Equal(t, privilege.ExitProtocol, code)
		assert.Contains(t, stderr.String(), "unknown operation")
	})

	t.Run("primitive failure", func(t *testing.T) {
		var stderr bytes.Buffer
		code := privilege.Serve([]string{"remove-dir", filepath.Join(dir, "missing")}, filesystem.NewOS(), &stderr)
		assert.Equal(t, privilege.ExitFailed, code)
	})
}

func TestHelperEscalatorRunsCommand(t *testing.T) {
	// "true" accepts and ignores any arguments, standing in for sudo+helper.
	esc := privilege.NewHelperEscalator([]string{"true"})
	require.NoError(t, esc.Escalate(context.Background(), privilege.CreateDir("/tmp/never-created-by-true")))

	failing := privilege.NewHelperEscalator([]string{"false"})
	err := failing.Escalate(context.Background(), privilege.CreateDir("/tmp/x"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCommandFailed))
}

func TestDefaultCommand(t *testing.T) {
	assert.Equal(t, []string{"sudo", "--", "declarix-helper"}, privilege.NewHelperEscalator(nil).Command)
}
