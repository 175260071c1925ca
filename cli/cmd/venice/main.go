// Venice CLI - command-line access to the Venice AI API.
package main

import (
	"os"

	"github.com/petal-labs/venice-go/cli/commands"
)

// ExitCoder is an interface for errors that carry an exit code.
type ExitCoder interface {
	ExitCode() int
}

func main() {
	if err := commands.Execute(); err != nil {
		if ec, ok := err.(ExitCoder); ok {
			os.Exit(ec.ExitCode())
		}
		os.Exit(1)
	}
}
