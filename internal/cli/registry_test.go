package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubCommand struct {
	name string
	got  []string
	err  error
}

func (s *stubCommand) Name() string        { return s.name }
func (s *stubCommand) Description() string { return "stub " + s.name }
func (s *stubCommand) Run(args []string) error {
	s.got = args
	return s.err
}

func TestRegistry_Run(t *testing.T) {
	r := NewRegistry()
	grant := &stubCommand{name: "access"}
	failing := &stubCommand{name: "sessions", err: errors.New("db down")}
	r.Register(grant)
	r.Register(failing)

	assert.NoError(t, r.Run([]string{"access", "grant", "-email", "a@x.io"}))
	assert.Equal(t, []string{"grant", "-email", "a@x.io"}, grant.got)

	assert.EqualError(t, r.Run([]string{"sessions", "prune"}), "db down")
	assert.EqualError(t, r.Run([]string{"nope"}), "unknown command: nope")
	assert.Error(t, r.Run(nil))
	assert.NoError(t, r.Run([]string{"help"}))
}
