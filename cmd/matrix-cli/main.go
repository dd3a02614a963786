package main

import (
	"fmt"
	"os"

	"github.com/otebe/matrix/internal/cli"
	"github.com/otebe/matrix/internal/cli/access"
	"github.com/otebe/matrix/internal/cli/admin"
	"github.com/otebe/matrix/internal/cli/sessions"
	"github.com/otebe/matrix/internal/cli/telegram"
)

func main() {
	registry := cli.NewRegistry()

	// Register commands
	registry.Register(&access.Command{})
	registry.Register(&sessions.Command{})
	registry.Register(&telegram.Command{})
	registry.Register(&admin.Command{})

	// Run
	if err := registry.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
