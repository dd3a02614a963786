package admin

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	domain "github.com/otebe/matrix/internal/domain/admin"
)

// Command implements admin panel credential tasks
type Command struct {
	// In is read when no -password flag is given; defaults to stdin
	In io.Reader
	// Out receives the hash; defaults to stdout
	Out io.Writer
}

func (c *Command) Name() string {
	return "admin"
}

func (c *Command) Description() string {
	return "Admin panel tasks (hash-password)"
}

func (c *Command) Run(args []string) error {
	if len(args) < 1 || args[0] != "hash-password" {
		fmt.Fprintf(os.Stderr, "Usage: matrix-cli admin hash-password [-password <password>]\n")
		if len(args) < 1 {
			return fmt.Errorf("subcommand required")
		}
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
	return c.runHashPassword(args[1:])
}

func (c *Command) runHashPassword(args []string) error {
	fs := flag.NewFlagSet("hash-password", flag.ContinueOnError)
	password := fs.String("password", "", "Password to hash; read from stdin when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in, out := c.In, c.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	if *password == "" {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read password: %w", err)
		}
		*password = strings.TrimRight(line, "\r\n")
	}
	if *password == "" {
		return fmt.Errorf("password is required")
	}

	hash, err := domain.HashPassword(*password)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, hash)
	return nil
}
