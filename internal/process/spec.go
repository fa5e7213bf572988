package process

import (
	"context"
	"errors"
	"os/exec"
	"strings"
)

// ErrEmptyCommand is returned when a Spec carries no argument list.
var ErrEmptyCommand = errors.New("empty command")

// Spec describes a program to launch. Args is an argument list; nothing is
// ever passed through a shell.
type Spec struct {
	Name     string   `json:"name" mapstructure:"name"`
	Args     []string `json:"args" mapstructure:"args"`
	WorkDir  string   `json:"work_dir" mapstructure:"work_dir"`
	Env      []string `json:"env" mapstructure:"env"` // full environment; nil inherits the parent's
	Detached bool     `json:"detached" mapstructure:"detached"`
}

// Validate checks that the spec names a program.
func (s Spec) Validate() error {
	if len(s.Args) == 0 || strings.TrimSpace(s.Args[0]) == "" {
		return ErrEmptyCommand
	}
	return nil
}

// BuildCommand constructs an *exec.Cmd for the spec bound to ctx.
func (s Spec) BuildCommand(ctx context.Context) (*exec.Cmd, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	// ok: argv comes from local configuration, no shell involved
	// #nosec G204
	cmd := exec.CommandContext(ctx, s.Args[0], s.Args[1:]...)
	if s.WorkDir != "" {
		cmd.Dir = s.WorkDir
	}
	if s.Env != nil {
		cmd.Env = s.Env
	}
	configureSysProcAttr(cmd, s.Detached)
	return cmd, nil
}

// String renders the argument list for log lines.
func (s Spec) String() string { return strings.Join(s.Args, " ") }
