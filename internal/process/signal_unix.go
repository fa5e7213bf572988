//go:build !windows

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// ErrProcessGone is returned by Terminate when no process has the given PID.
var ErrProcessGone = errors.New("process already exited")

// Terminate asks pid to shut down with SIGTERM. It does not wait.
func Terminate(pid int) error {
	if pid <= 0 {
		return ErrProcessGone
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return ErrProcessGone
		}
		return err
	}
	return nil
}

func interrupt(p *os.Process) error {
	if p == nil {
		return nil
	}
	return p.Signal(os.Interrupt)
}

func interruptedBySignal(ee *exec.ExitError) bool {
	ws, ok := ee.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return false
	}
	return ws.Signal() == syscall.SIGINT || ws.Signal() == syscall.SIGTERM
}
