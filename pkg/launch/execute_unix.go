//go:build !windows

package launch

import (
	"os/exec"
	"syscall"
)

// setupProcessAttributes puts the child in its own process group so the
// supervisor can signal the whole tree through -pid
func setupProcessAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
