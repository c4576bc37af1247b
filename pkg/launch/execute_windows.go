//go:build windows

package launch

import (
	"os/exec"
	"syscall"
)

// setupProcessAttributes isolates the child in a new process group so it can
// receive Ctrl+Break without the supervisor's console being affected
func setupProcessAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
