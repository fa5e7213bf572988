// Package supervisor starts, stops and inspects one background server
// process per context directory. Nothing runs in-process after a background
// start: every call re-derives state from the PID record and a liveness probe.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/loykin/ccp/internal/detector"
	"github.com/loykin/ccp/internal/env"
	"github.com/loykin/ccp/internal/history"
	"github.com/loykin/ccp/internal/logger"
	"github.com/loykin/ccp/internal/process"
)

// State is the observable state of the server.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// Mode selects how Start launches the server.
type Mode int

const (
	ModeBackground Mode = iota
	ModeForeground
)

func (m Mode) String() string {
	if m == ModeForeground {
		return "foreground"
	}
	return "background"
}

// Status describes the server. PID, Address, LogPath and StartedAt are set
// only when State is StateRunning; StartedAt may be zero when the platform
// cannot report it.
type Status struct {
	State     State
	PID       int
	Address   string
	LogPath   string
	StartedAt time.Time
}

func (s Status) Running() bool { return s.State == StateRunning }

type StartOptions struct {
	Mode             Mode
	AutoLaunchClient bool
}

// StartResult reports what Start did.
type StartResult struct {
	// AlreadyRunning is set when a live server was found and nothing was launched.
	AlreadyRunning bool
	Status         Status
	// Foreground is set after an attached run returns.
	Foreground *process.RunResult
	// Client is set when the client program ran.
	Client *ClientResult
}

type StopResult struct {
	PID int
	// AlreadyExited is set when the recorded process was gone before the signal.
	AlreadyExited bool
}

// Supervisor operates on a single Context.
type Supervisor struct {
	c           Context
	name        string
	server      []string
	fgArgs      []string
	serverEnv   []string
	address     string
	client      ClientConfig
	preparer    Preparer
	rotation    logger.FileConfig
	sink        history.Sink
	log         *slog.Logger
	lockTimeout time.Duration
	settle      time.Duration
	stdio       process.IO
	baseEnv     *env.Env
	lookPath    func(string) (string, error)
	sleep       func(context.Context, time.Duration) error
}

// New returns a Supervisor for c. Without WithServer, Start fails with
// ErrLaunchFailed.
func New(c Context, opts ...Option) *Supervisor {
	s := &Supervisor{
		c:           c,
		name:        "ccp",
		client:      DefaultClientConfig(),
		log:         slog.Default(),
		lockTimeout: DefaultLockTimeout,
		settle:      DefaultSettle,
		lookPath:    exec.LookPath,
		sleep:       sleepCtx,
	}
	for _, o := range opts {
		o(s)
	}
	if s.baseEnv == nil {
		s.baseEnv = env.New()
	}
	s.rotation.Path = c.LogFile
	return s
}

// Context returns the paths this supervisor works on.
func (s *Supervisor) Context() Context { return s.c }

// Start launches the server according to o. See StartOptions for the modes.
// When the client cannot be found the server stays up and the returned
// result is still populated alongside ErrClientNotFound.
func (s *Supervisor) Start(ctx context.Context, o StartOptions) (*StartResult, error) {
	if o.Mode == ModeForeground && o.AutoLaunchClient {
		return nil, fmt.Errorf("%w: foreground and auto-launch are mutually exclusive", ErrInvalidArguments)
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	st := s.probe(ctx)
	if st.Running() {
		res := &StartResult{AlreadyRunning: true, Status: st}
		if !o.AutoLaunchClient {
			s.log.Info("server already running", "pid", st.PID, "address", st.Address)
			return res, nil
		}
		release()
		return s.withClient(ctx, res)
	}

	if s.preparer != nil {
		if err := s.preparer.Prepare(ctx); err != nil {
			if !errors.Is(err, ErrEnvironmentSetup) {
				err = fmt.Errorf("%w: %v", ErrEnvironmentSetup, err)
			}
			return nil, err
		}
	}

	spec := process.Spec{
		Name:    s.name,
		Args:    s.server,
		WorkDir: s.c.Dir,
		Env:     s.baseEnv.Merge(s.serverEnv),
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	if o.Mode == ModeForeground {
		release()
		spec.Args = append(append([]string(nil), spec.Args...), s.fgArgs...)
		s.log.Info("running server in foreground", "command", spec.String())
		rr, err := process.RunAttached(ctx, spec, s.stdio)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
		}
		return &StartResult{Status: Status{State: StateStopped}, Foreground: &rr}, nil
	}

	if rotated, err := logger.RotateIfNeeded(s.rotation); err != nil {
		s.log.Warn("log rotation failed", "path", s.c.LogFile, "error", err)
	} else if rotated {
		s.log.Info("rotated log file", "path", s.c.LogFile)
	}

	started, err := process.StartDetached(spec, s.c.LogFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}
	if err := process.WriteRecord(s.c.PIDFile, started.PID); err != nil {
		_ = process.Terminate(started.PID)
		return nil, fmt.Errorf("%w: write %s: %v", ErrLaunchFailed, s.c.PIDFile, err)
	}
	if err := s.awaitSettle(started); err != nil {
		if rerr := process.RemoveRecord(s.c.PIDFile); rerr != nil {
			s.log.Warn("remove record", "path", s.c.PIDFile, "error", rerr)
		}
		s.record(ctx, history.EventStale, started.PID, "exited during startup")
		return nil, err
	}
	st = Status{
		State:     StateRunning,
		PID:       started.PID,
		Address:   s.address,
		LogPath:   s.c.LogFile,
		StartedAt: started.StartedAt,
	}
	s.log.Info("server started", "pid", st.PID, "address", st.Address, "log", st.LogPath)
	s.record(ctx, history.EventStart, st.PID, spec.String())
	release()

	res := &StartResult{Status: st}
	if !o.AutoLaunchClient {
		return res, nil
	}
	return s.withClient(ctx, res)
}

// awaitSettle fails if the child exits within the settle window. The error
// carries the tail of the log file, which is where the child's diagnostics
// went.
func (s *Supervisor) awaitSettle(started *process.Started) error {
	if s.settle <= 0 {
		return nil
	}
	t := time.NewTimer(s.settle)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-started.Exited:
	}
	s.log.Error("server exited during startup", "pid", started.PID, "log", s.c.LogFile)
	detail := ""
	if lines, err := logger.Tail(s.c.LogFile, startupTailLines); err == nil && len(lines) > 0 {
		detail = ":\n" + strings.Join(lines, "\n")
	}
	return fmt.Errorf("%w: server exited during startup; see %s%s", ErrLaunchFailed, s.c.LogFile, detail)
}

// Stop sends a termination request to the recorded process and removes the
// record. It does not wait for the process to exit.
func (s *Supervisor) Stop(ctx context.Context) (*StopResult, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	pid, err := process.ReadRecord(s.c.PIDFile)
	switch {
	case errors.Is(err, process.ErrNoRecord):
		return nil, ErrNotRunning
	case errors.Is(err, detector.ErrInvalidPID):
		if rerr := process.RemoveRecord(s.c.PIDFile); rerr != nil {
			s.log.Warn("remove corrupt record", "path", s.c.PIDFile, "error", rerr)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	case err != nil:
		return nil, err
	}

	res := &StopResult{PID: pid}
	var sigErr error
	if !detector.PIDAlive(pid) {
		res.AlreadyExited = true
	} else if err := process.Terminate(pid); err != nil {
		if errors.Is(err, process.ErrProcessGone) {
			res.AlreadyExited = true
		} else {
			sigErr = fmt.Errorf("signal pid %d: %w", pid, err)
		}
	}
	if res.AlreadyExited {
		s.log.Warn("process was not running", "pid", pid)
	} else if sigErr == nil {
		s.log.Info("stop requested", "pid", pid)
	}

	if err := process.RemoveRecord(s.c.PIDFile); err != nil {
		return res, errors.Join(sigErr, err)
	}
	detail := ""
	if res.AlreadyExited {
		detail = "already exited"
	}
	s.record(ctx, history.EventStop, pid, detail)
	return res, sigErr
}

// Status probes the recorded process. A record whose process is gone, or
// that cannot be parsed, is removed and reported as stopped.
func (s *Supervisor) Status(ctx context.Context) (Status, error) {
	return s.probe(ctx), nil
}

func (s *Supervisor) probe(ctx context.Context) Status {
	d := detector.PIDFileDetector{PIDFile: s.c.PIDFile}
	pid, alive, err := d.Probe()
	if err == nil && pid == 0 {
		return Status{State: StateStopped}
	}
	if alive {
		st := Status{State: StateRunning, PID: pid, Address: s.address, LogPath: s.c.LogFile}
		if t, ok := detector.StartTime(pid); ok {
			st.StartedAt = t
		}
		return st
	}

	reason := "process not found"
	if err != nil {
		reason = err.Error()
	}
	if rerr := process.RemoveRecord(s.c.PIDFile); rerr != nil {
		s.log.Warn("remove stale record", "path", s.c.PIDFile, "error", rerr)
		return Status{State: StateStopped}
	}
	s.log.Info("removed stale process record", "pid", pid, "reason", reason, "detector", d.Describe())
	s.record(ctx, history.EventStale, pid, reason)
	return Status{State: StateStopped}
}

// Logs writes the last lines of the log file to w and follows it until ctx
// is cancelled. Cancellation is a normal return.
func (s *Supervisor) Logs(ctx context.Context, w io.Writer, lines int) error {
	if _, err := os.Stat(s.c.LogFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNoLogFile, s.c.LogFile)
		}
		return err
	}
	if lines < 0 {
		lines = logger.DefaultTailLines
	}
	return logger.Follow(ctx, s.c.LogFile, w, lines)
}

func (s *Supervisor) record(ctx context.Context, typ history.EventType, pid int, detail string) {
	if s.sink == nil {
		return
	}
	e := history.Event{Type: typ, OccurredAt: time.Now().UTC(), Name: s.name, PID: pid, Detail: detail}
	if err := s.sink.Send(ctx, e); err != nil {
		s.log.Warn("history event not recorded", "type", typ, "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
