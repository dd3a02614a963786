package sessions

import (
	"fmt"
	"os"

	"github.com/otebe/matrix/internal/cli"
	"github.com/otebe/matrix/internal/database"
	"github.com/otebe/matrix/internal/domain/session"
)

// Command implements device session maintenance
type Command struct{}

func (c *Command) Name() string {
	return "sessions"
}

func (c *Command) Description() string {
	return "Device session maintenance (prune, cleanup-unknown)"
}

func (c *Command) Run(args []string) error {
	if len(args) < 1 {
		c.printUsage()
		return fmt.Errorf("subcommand required")
	}

	var run func(session.Service) (int64, error)
	switch args[0] {
	case "prune":
		run = session.Service.Prune
	case "cleanup-unknown":
		run = session.Service.CleanupUnknown
	default:
		c.printUsage()
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}

	cfg, err := cli.OpenDatabase()
	if err != nil {
		return err
	}
	defer database.CloseDB()

	n, err := run(session.NewService(session.NewRepository(database.DB), cfg.Access.SessionWindow))
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d sessions\n", n)
	return nil
}

func (c *Command) printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: matrix-cli sessions <subcommand>\n\n")
	fmt.Fprintf(os.Stderr, "Subcommands:\n")
	fmt.Fprintf(os.Stderr, "  prune             Delete sessions idle longer than the session window\n")
	fmt.Fprintf(os.Stderr, "  cleanup-unknown   Delete sessions recorded without a device identity\n")
}
