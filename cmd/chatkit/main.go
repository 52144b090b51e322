// Package main provides the entry point for the chatkit server CLI.
package main

import (
	"fmt"
	"os"

	"github.com/chatkit-ai/chatkit/cmd/chatkit/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
