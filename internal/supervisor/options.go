package supervisor

import (
	"log/slog"
	"time"

	"github.com/loykin/ccp/internal/config"
	"github.com/loykin/ccp/internal/env"
	"github.com/loykin/ccp/internal/history"
	"github.com/loykin/ccp/internal/logger"
	"github.com/loykin/ccp/internal/process"
)

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithServer sets the server argument list, the extra arguments appended for
// foreground runs, and "K=V" environment overrides.
func WithServer(argv, foregroundArgs, envOverrides []string) Option {
	return func(s *Supervisor) {
		s.server = append([]string(nil), argv...)
		s.fgArgs = append([]string(nil), foregroundArgs...)
		s.serverEnv = append([]string(nil), envOverrides...)
	}
}

// WithAddress sets the connection address reported for a running server.
func WithAddress(addr string) Option { return func(s *Supervisor) { s.address = addr } }

func WithClient(c ClientConfig) Option { return func(s *Supervisor) { s.client = c } }

func WithPreparer(p Preparer) Option { return func(s *Supervisor) { s.preparer = p } }

// WithLogRotation sets the size-based rotation applied before a background
// start. The path is always the context's log file.
func WithLogRotation(fc logger.FileConfig) Option { return func(s *Supervisor) { s.rotation = fc } }

func WithHistory(sink history.Sink) Option { return func(s *Supervisor) { s.sink = sink } }

func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.log = l
		}
	}
}

func WithLockTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithSettle overrides DefaultSettle. Zero disables the startup check.
func WithSettle(d time.Duration) Option {
	return func(s *Supervisor) {
		if d >= 0 {
			s.settle = d
		}
	}
}

// WithIO sets the streams of attached runs (foreground server and client).
func WithIO(stdio process.IO) Option { return func(s *Supervisor) { s.stdio = stdio } }

// WithBaseEnv sets the environment children inherit. Defaults to the
// current process environment.
func WithBaseEnv(e *env.Env) Option { return func(s *Supervisor) { s.baseEnv = e } }

// WithLookPath replaces exec.LookPath for the client lookup.
func WithLookPath(f func(string) (string, error)) Option {
	return func(s *Supervisor) { s.lookPath = f }
}

// FromConfig translates a supervisor file configuration into options. exe is
// the running binary, used for the default server command.
func FromConfig(fc config.FileConfig, exe string) []Option {
	opts := []Option{
		WithServer(fc.ServerCommand(exe), fc.Server.ForegroundArgs, fc.Server.Env),
		WithAddress(fc.Server.Address),
		WithClient(ClientConfig{Command: fc.Client.Command, EnvVar: fc.Client.EnvVar, Grace: fc.Client.Grace}),
		WithLogRotation(logger.FileConfig{
			MaxSizeMB:  fc.Log.MaxSizeMB,
			MaxBackups: fc.Log.MaxBackups,
			MaxAgeDays: fc.Log.MaxAgeDays,
			Compress:   fc.Log.Compress,
		}),
	}
	e := fc.Environment
	if len(e.Create) > 0 || len(e.Install) > 0 {
		opts = append(opts, func(s *Supervisor) {
			s.preparer = CommandPreparer{
				Dir:     e.Dir,
				Create:  e.Create,
				Install: e.Install,
				WorkDir: s.c.Dir,
				Logger:  s.log,
			}
		})
	}
	return opts
}
