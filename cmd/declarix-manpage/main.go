package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/arthur-debert/declarix/cmd/declarix"
	"github.com/arthur-debert/declarix/internal/version"
)

func main() {
	rootCmd := declarix.NewRootCmd()

	header := &doc.GenManHeader{
		Title:   "DECLARIX",
		Section: "1",
		Source:  "declarix " + version.Version,
		Manual:  "declarix manual",
	}

	if err := doc.GenMan(rootCmd, header, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating man page: %v\n", err)
		os.Exit(1)
	}
}
