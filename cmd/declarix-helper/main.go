// Command declarix-helper performs exactly one filesystem primitive on
// behalf of declarix. It is meant to be reached through sudo and accepts
// nothing but [operation, path...].
package main

import (
	"os"

	"github.com/arthur-debert/declarix/pkg/filesystem"
	"github.com/arthur-debert/declarix/pkg/privilege"
)

func main() {
	os.Exit(privilege.Serve(os.Args[1:], filesystem.NewOS(), os.Stderr))
}
