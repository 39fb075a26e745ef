package reconcile

import (
	"path/filepath"

	"github.com/arthur-debert/declarix/pkg/privilege"
	"github.com/arthur-debert/declarix/pkg/types"
)

// Plan is one concrete operation decided during a pass. It is never
// persisted.
type Plan struct {
	Source      string
	Destination string
	Op          privilege.Op
	Class       types.Class
}

// Request converts the plan into a privilege request
func (p Plan) Request() privilege.Request {
	switch p.Op {
	case privilege.OpCreateDir, privilege.OpCreateDirAll, privilege.OpRemoveFile, privilege.OpRemoveDir:
		return privilege.Request{Op: p.Op, Target: filepath.Clean(p.Destination)}
	default:
		return privilege.Request{Op: p.Op, Source: filepath.Clean(p.Source), Target: filepath.Clean(p.Destination)}
	}
}
