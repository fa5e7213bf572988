package process

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"
)

// Started describes a detached child that was spawned successfully.
type Started struct {
	PID       int
	StartedAt time.Time
	// Exited is closed once the child has been reaped by this process.
	Exited <-chan struct{}
}

// StartDetached spawns spec in a new session with stdout and stderr appended
// to logPath. It returns as soon as the child is running; the child outlives
// the caller.
func StartDetached(spec Spec, logPath string) (*Started, error) {
	spec.Detached = true
	// Never cancelled: the child must outlive this call.
	cmd, err := spec.BuildCommand(context.Background())
	if err != nil {
		return nil, err
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	// The child keeps its own descriptor.
	defer func() { _ = logFile.Close() }()
	devNull, err := os.Open(os.DevNull)
	if err != nil {
		return nil, err
	}
	defer func() { _ = devNull.Close() }()

	cmd.Stdin = devNull
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		// Reap so a long-lived parent does not accumulate zombies.
		_ = cmd.Wait()
		close(done)
	}()
	return &Started{PID: cmd.Process.Pid, StartedAt: time.Now(), Exited: done}, nil
}

// RunResult reports how an attached run ended.
type RunResult struct {
	ExitCode    int
	Interrupted bool
}

// IO wires the standard streams of an attached run. Nil fields inherit the
// caller's streams.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// RunAttached runs spec in the foreground and blocks until it exits. When ctx
// is cancelled the child receives an interrupt, and the run is reported as
// Interrupted rather than failed. A non-zero exit is returned in ExitCode with
// a nil error; only failures to spawn or wait are errors.
func RunAttached(ctx context.Context, spec Spec, stdio IO) (RunResult, error) {
	spec.Detached = false
	cmd, err := spec.BuildCommand(ctx)
	if err != nil {
		return RunResult{}, err
	}
	cmd.Cancel = func() error { return interrupt(cmd.Process) }
	cmd.WaitDelay = 10 * time.Second
	cmd.Stdin = orReader(stdio.Stdin, os.Stdin)
	cmd.Stdout = orWriter(stdio.Stdout, os.Stdout)
	cmd.Stderr = orWriter(stdio.Stderr, os.Stderr)

	if err := cmd.Start(); err != nil {
		return RunResult{}, err
	}
	werr := cmd.Wait()
	if ctx.Err() != nil {
		return RunResult{ExitCode: exitCode(cmd), Interrupted: true}, nil
	}
	if werr != nil {
		var ee *exec.ExitError
		if errors.As(werr, &ee) {
			if interruptedBySignal(ee) {
				return RunResult{ExitCode: ee.ExitCode(), Interrupted: true}, nil
			}
			return RunResult{ExitCode: ee.ExitCode()}, nil
		}
		return RunResult{ExitCode: -1}, werr
	}
	return RunResult{}, nil
}

func exitCode(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}

func orReader(r io.Reader, def *os.File) io.Reader {
	if r != nil {
		return r
	}
	return def
}

func orWriter(w io.Writer, def *os.File) io.Writer {
	if w != nil {
		return w
	}
	return def
}
