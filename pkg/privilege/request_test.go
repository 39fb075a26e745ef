// pkg/privilege/request_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: The helper protocol is closed, typed and validated on both ends

package privilege_test

import (
	"testing"

	"github.com/arthur-debert/declarix/pkg/errors"
	"github.com/arthur-debert/declarix/pkg/privilege"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	requests := []privilege.Request{
		privilege.Symlink("/src/a", "/dst/a"),
		privilege.Hardlink("/src/a", "/dst/a"),
		privilege.Copy("/src/a", "/dst/a"),
		privilege.CreateDir("/dst/d"),
		privilege.CreateDirAll("/dst/d/e"),
		privilege.RemoveFile("/dst/a"),
		privilege.RemoveDir("/dst/d"),
	}

	for _, r := range requests {
		t.Run(string(r.Op), func(t *testing.T) {
			argv, err := r.Encode()
			require.NoError(t, err)
			assert.Equal(t, string(r.Op), argv[0])
			assert.Equal(t, r.Args(), argv[1:])

			decoded, err := privilege.Decode(argv)
			require.NoError(t, err)
			assert.Equal(t, r, decoded)
		})
	}
}

func TestArgsKeepInProcessOrder(t *testing.T) {
	assert.Equal(t, []string{"/etc/declarix/hosts", "/etc/hosts"}, privilege.Symlink("/etc/declarix/hosts", "/etc/hosts").Args())
	assert.Equal(t, []string{"/etc/hosts"}, privilege.RemoveFile("/etc/hosts").Args())
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		argv []string
	}{
		{"empty", nil},
		{"unknown operation", []string{"chmod", "/etc/shadow"}},
		{"shell smuggling", []string{"sh", "-c", "id"}},
		{"too few args", []string{"symlink", "/a"}},
		{"too many args", []string{"remove-file", "/a", "/b"}},
		{"relative path", []string{"remove-file", "etc/hosts"}},
		{"unclean path", []string{"remove-file", "/etc/../etc/hosts"}},
		{"nul byte", []string{"create-dir", "/tmp/a\x00b"}},
		{"flag lookalike", []string{"remove-dir", "-rf"}},
		{"remove root", []string{"remove-dir", "/"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := privilege.Decode(tt.argv)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidOperation), "got %v", err)
		})
	}
}

func TestValidateRejectsSourceOnSinglePathOp(t *testing.T) {
	r := privilege.Request{Op: privilege.OpRemoveFile, Source: "/a", Target: "/b"}
	assert.Error(t, r.Validate())
}

func TestOpsAreClosed(t *testing.T) {
	for _, op := range privilege.Ops() {
		assert.NotZero(t, op.Arity(), "op %s", op)
	}
	assert.Zero(t, privilege.Op("rm -rf").Arity())
}
