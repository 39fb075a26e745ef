package main

import (
	"context"
	"fmt"
	"os"

	"github.com/arthur-debert/declarix/cmd/declarix"
	"github.com/arthur-debert/declarix/pkg/output"
)

func main() {
	rootCmd := declarix.NewRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		output.NewRenderer(os.Stderr, false).Error(err)
		fmt.Fprintln(os.Stderr)
		os.Exit(1)
	}
}
