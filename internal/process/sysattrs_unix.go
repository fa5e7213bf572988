//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr sets platform-specific attributes for Unix-like systems.
// A detached child gets its own session so it survives the parent and its
// controlling terminal. An attached child stays in the caller's process group
// so a terminal interrupt reaches it directly.
func configureSysProcAttr(cmd *exec.Cmd, detached bool) {
	if !detached {
		return
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
