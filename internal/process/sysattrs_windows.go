//go:build windows

package process

import (
	"os/exec"
	"syscall"
)

// Windows creation flags
const (
	CREATE_NEW_PROCESS_GROUP = 0x00000200
	DETACHED_PROCESS         = 0x00000008
)

// configureSysProcAttr gives detached children their own process group and
// no console; attached children share the caller's console.
func configureSysProcAttr(cmd *exec.Cmd, detached bool) {
	if !detached {
		return
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: uint32(CREATE_NEW_PROCESS_GROUP | DETACHED_PROCESS),
	}
}
