package access

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/otebe/matrix/internal/cli"
	"github.com/otebe/matrix/internal/database"
	domain "github.com/otebe/matrix/internal/domain/access"
	"github.com/otebe/matrix/internal/domain/session"
)

const grantedBy = "cli"

// Command implements access grant management
type Command struct{}

func (c *Command) Name() string {
	return "access"
}

func (c *Command) Description() string {
	return "Manage access grants (grant, revoke, check)"
}

func (c *Command) Run(args []string) error {
	if len(args) < 1 {
		c.printUsage()
		return fmt.Errorf("subcommand required")
	}

	switch args[0] {
	case "grant":
		return c.runGrant(args[1:])
	case "revoke":
		return c.runRevoke(args[1:])
	case "check":
		return c.runCheck(args[1:])
	default:
		c.printUsage()
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

func (c *Command) printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: matrix-cli access <subcommand> [args]\n\n")
	fmt.Fprintf(os.Stderr, "Subcommands:\n")
	fmt.Fprintf(os.Stderr, "  grant    Grant a plan: -email <email> -plan <single|month|half_year|year>\n")
	fmt.Fprintf(os.Stderr, "  revoke   Revoke a grant and its sessions: -email <email>\n")
	fmt.Fprintf(os.Stderr, "  check    Print the grant for an email: -email <email>\n")
}

func (c *Command) runGrant(args []string) error {
	fs := flag.NewFlagSet("grant", flag.ExitOnError)
	email := fs.String("email", "", "Customer email")
	plan := fs.String("plan", string(domain.PlanMonth), "Plan type")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, err := newService()
	if err != nil {
		return err
	}
	defer database.CloseDB()

	grant, err := svc.Grant(*email, domain.PlanType(*plan), grantedBy)
	if err != nil {
		return err
	}
	return printJSON(grant)
}

func (c *Command) runRevoke(args []string) error {
	fs := flag.NewFlagSet("revoke", flag.ExitOnError)
	email := fs.String("email", "", "Customer email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, err := newService()
	if err != nil {
		return err
	}
	defer database.CloseDB()

	if err := svc.Revoke(*email); err != nil {
		return err
	}
	fmt.Printf("Access revoked for %s\n", domain.NormalizeEmail(*email))
	return nil
}

func (c *Command) runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	email := fs.String("email", "", "Customer email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, err := newService()
	if err != nil {
		return err
	}
	defer database.CloseDB()

	grant, err := svc.Lookup(*email)
	if err != nil {
		return err
	}
	if grant == nil {
		return domain.ErrGrantNotFound
	}
	return printJSON(grant)
}

func newService() (domain.Service, error) {
	cfg, err := cli.OpenDatabase()
	if err != nil {
		return nil, err
	}

	// No security logging or session tokens from the command line
	sessions := session.NewService(session.NewRepository(database.DB), cfg.Access.SessionWindow)
	return domain.NewService(database.DB, domain.NewRepository(database.DB), sessions, nil, nil, domain.Options{
		DefaultMaxDevices: cfg.Access.DefaultMaxDevices,
		StrictDeviceLimit: cfg.Access.StrictDeviceLimit,
		TokenTTL:          cfg.Access.TokenTTL,
	}), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
