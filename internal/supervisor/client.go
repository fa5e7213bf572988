package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/loykin/ccp/internal/process"
)

// ClientConfig describes the interactive client launched by an auto start.
type ClientConfig struct {
	Command []string
	EnvVar  string
	Grace   time.Duration
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Command: []string{"claude"},
		EnvVar:  "ANTHROPIC_BASE_URL",
		Grace:   2 * time.Second,
	}
}

// ClientResult reports how the client run ended. It never affects the server.
type ClientResult struct {
	Path        string
	ExitCode    int
	Interrupted bool
}

// withClient waits the grace period and runs the client attached to the
// caller's terminal with the server address in its environment.
func (s *Supervisor) withClient(ctx context.Context, res *StartResult) (*StartResult, error) {
	if len(s.client.Command) == 0 {
		return res, fmt.Errorf("%w: no client command configured", ErrClientNotFound)
	}
	path, err := s.lookPath(s.client.Command[0])
	if err != nil {
		return res, fmt.Errorf("%w: %s", ErrClientNotFound, s.client.Command[0])
	}
	if err := s.sleep(ctx, s.client.Grace); err != nil {
		// Interrupted while waiting; the server keeps running.
		res.Client = &ClientResult{Path: path, Interrupted: true}
		return res, nil
	}

	args := append([]string{path}, s.client.Command[1:]...)
	spec := process.Spec{
		Name:    "client",
		Args:    args,
		WorkDir: s.c.Dir,
		Env:     s.baseEnv.Merge([]string{s.client.EnvVar + "=" + res.Status.Address}),
	}
	s.log.Info("launching client", "command", spec.String(), s.client.EnvVar, res.Status.Address)
	rr, err := process.RunAttached(ctx, spec, s.stdio)
	if err != nil {
		return res, fmt.Errorf("run client: %w", err)
	}
	res.Client = &ClientResult{Path: path, ExitCode: rr.ExitCode, Interrupted: rr.Interrupted}
	if rr.ExitCode != 0 && !rr.Interrupted {
		s.log.Warn("client exited", "code", rr.ExitCode)
	}
	return res, nil
}
