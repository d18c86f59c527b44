// Package main provides the scafc CLI, a command-line front end for scaf
// completions.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "scafc",
		Version: version,
		Usage:   "Code completion for the scaf DSL",
		Commands: []*cli.Command{
			completeCommand(),
			tryCommand(),
		},
	}
}

func main() {
	err := newApp().Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
