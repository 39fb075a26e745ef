package privilege

import (
	"path/filepath"
	"strings"

	"github.com/arthur-debert/declarix/pkg/errors"
)

// Op is one primitive filesystem operation
type Op string

const (
	OpSymlink      Op = "symlink"
	OpHardlink     Op = "hardlink"
	OpCopy         Op = "copy"
	OpCreateDir    Op = "create-dir"
	OpCreateDirAll Op = "create-dir-all"
	OpRemoveFile   Op = "remove-file"
	OpRemoveDir    Op = "remove-dir"
)

// Ops returns the closed operation set understood by the helper
func Ops() []Op {
	return []Op{OpSymlink, OpHardlink, OpCopy, OpCreateDir, OpCreateDirAll, OpRemoveFile, OpRemoveDir}
}

// Arity is the number of path arguments the operation takes
func (o Op) Arity() int {
	switch o {
	case OpSymlink, OpHardlink, OpCopy:
		return 2
	case OpCreateDir, OpCreateDirAll, OpRemoveFile, OpRemoveDir:
		return 1
	default:
		return 0
	}
}

func (o Op) removes() bool {
	return o == OpRemoveFile || o == OpRemoveDir
}

// Request is one validated primitive invocation. Source is only set for
// two-path operations; Target is always the path that gets created or
// removed.
type Request struct {
	Op     Op
	Source string
	Target string
}

// Symlink creates target pointing at source
func Symlink(source, target string) Request {
	return Request{Op: OpSymlink, Source: source, Target: target}
}

// Hardlink creates target as a second name for source
func Hardlink(source, target string) Request {
	return Request{Op: OpHardlink, Source: source, Target: target}
}

// Copy copies source to target, carrying the modification time across
func Copy(source, target string) Request {
	return Request{Op: OpCopy, Source: source, Target: target}
}

// CreateDir creates a single directory
func CreateDir(target string) Request {
	return Request{Op: OpCreateDir, Target: target}
}

// CreateDirAll creates a directory and any missing parents
func CreateDirAll(target string) Request {
	return Request{Op: OpCreateDirAll, Target: target}
}

// RemoveFile removes a file or symlink
func RemoveFile(target string) Request {
	return Request{Op: OpRemoveFile, Target: target}
}

// RemoveDir removes an empty directory
func RemoveDir(target string) Request {
	return Request{Op: OpRemoveDir, Target: target}
}

// Args returns the path arguments in the order the in-process primitive
// takes them.
func (r Request) Args() []string {
	if r.Op.Arity() == 2 {
		return []string{r.Source, r.Target}
	}
	return []string{r.Target}
}

// Validate checks the request against the closed protocol: a known
// operation, exactly the right arguments, and absolute clean paths.
func (r Request) Validate() error {
	arity := r.Op.Arity()
	if arity == 0 {
		return errors.Newf(errors.ErrInvalidOperation, "unknown operation %q", r.Op)
	}
	if arity == 1 && r.Source != "" {
		return errors.Newf(errors.ErrInvalidOperation, "operation %q takes a single path", r.Op)
	}
	for _, p := range r.Args() {
		if err := validatePath(p); err != nil {
			return errors.Wrapf(err, errors.ErrInvalidOperation, "operation %q", r.Op)
		}
	}
	if r.Op.removes() && r.Target == "/" {
		return errors.Newf(errors.ErrInvalidOperation, "operation %q refuses the filesystem root", r.Op)
	}
	return nil
}

func validatePath(p string) error {
	switch {
	case p == "":
		return errors.New(errors.ErrInvalidInput, "empty path")
	case strings.ContainsRune(p, 0):
		return errors.New(errors.ErrInvalidInput, "path contains NUL byte")
	case !filepath.IsAbs(p):
		return errors.Newf(errors.ErrInvalidInput, "path %q is not absolute", p)
	case filepath.Clean(p) != p:
		return errors.Newf(errors.ErrInvalidInput, "path %q is not clean", p)
	}
	return nil
}

// Encode serializes a validated request into the helper invocation
func (r Request) Encode() ([]string, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return append([]string{string(r.Op)}, r.Args()...), nil
}

// Decode parses a helper invocation back into a validated request
func Decode(argv []string) (Request, error) {
	if len(argv) == 0 {
		return Request{}, errors.New(errors.ErrInvalidOperation, "missing operation")
	}
	op := Op(argv[0])
	args := argv[1:]
	if op.Arity() == 0 {
		return Request{}, errors.Newf(errors.ErrInvalidOperation, "unknown operation %q", argv[0])
	}
	if len(args) != op.Arity() {
		return Request{}, errors.Newf(errors.ErrInvalidOperation, "operation %q takes %d paths, got %d", op, op.Arity(), len(args))
	}

	r := Request{Op: op}
	if op.Arity() == 2 {
		r.Source, r.Target = args[0], args[1]
	} else {
		r.Target = args[0]
	}
	if err := r.Validate(); err != nil {
		return Request{}, err
	}
	return r, nil
}
