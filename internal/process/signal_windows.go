//go:build windows

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

var (
	kernel32             = syscall.NewLazyDLL("kernel32.dll")
	procOpenProcess      = kernel32.NewProc("OpenProcess")
	procTerminateProcess = kernel32.NewProc("TerminateProcess")
	procCloseHandle      = kernel32.NewProc("CloseHandle")
)

const PROCESS_TERMINATE = 0x0001

// ErrProcessGone is returned by Terminate when no process has the given PID.
var ErrProcessGone = errors.New("process already exited")

// Terminate ends pid. Windows has no SIGTERM, so this is TerminateProcess.
func Terminate(pid int) error {
	if pid <= 0 {
		return ErrProcessGone
	}
	ret, _, _ := procOpenProcess.Call(uintptr(PROCESS_TERMINATE), 0, uintptr(uint32(pid)))
	if ret == 0 {
		return ErrProcessGone
	}
	h := syscall.Handle(ret)
	defer func() { _, _, _ = procCloseHandle.Call(uintptr(h)) }()
	if r, _, err := procTerminateProcess.Call(uintptr(h), uintptr(1)); r == 0 {
		return err
	}
	return nil
}

// Windows cannot deliver os.Interrupt to another process; fall back to Kill.
func interrupt(p *os.Process) error {
	if p == nil {
		return nil
	}
	return p.Kill()
}

func interruptedBySignal(*exec.ExitError) bool { return false }
