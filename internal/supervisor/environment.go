package supervisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Preparer makes sure the runtime environment of the server program exists
// and is up to date before a launch.
type Preparer interface {
	Prepare(ctx context.Context) error
}

// PreparerFunc adapts a function to Preparer.
type PreparerFunc func(ctx context.Context) error

func (f PreparerFunc) Prepare(ctx context.Context) error { return f(ctx) }

// CommandPreparer runs configured commands. Create runs only when Dir does not
// exist; Install runs on every launch. Empty steps are skipped.
type CommandPreparer struct {
	Dir     string
	Create  []string
	Install []string
	WorkDir string
	Env     []string
	Logger  *slog.Logger
}

func (p CommandPreparer) Prepare(ctx context.Context) error {
	if len(p.Create) > 0 && p.Dir != "" {
		if _, err := os.Stat(p.Dir); errors.Is(err, os.ErrNotExist) {
			if err := p.run(ctx, "create", p.Create); err != nil {
				return err
			}
		}
	}
	if len(p.Install) > 0 {
		return p.run(ctx, "install", p.Install)
	}
	return nil
}

func (p CommandPreparer) run(ctx context.Context, step string, argv []string) error {
	if p.Logger != nil {
		p.Logger.Info("preparing environment", "step", step, "command", strings.Join(argv, " "))
	}
	// #nosec G204
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = p.WorkDir
	cmd.Env = p.Env
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%w: %s: %s", ErrEnvironmentSetup, step, msg)
	}
	return nil
}
