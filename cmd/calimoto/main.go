package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := execute(newRootCommand()); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// execute runs cmd and always runs cleanup afterwards; cobra skips post-run
// hooks when a command fails
func execute(cmd *cobra.Command, cleanup func()) error {
	defer cleanup()
	return cmd.Execute()
}
