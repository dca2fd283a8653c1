//go:build unix

package runner

import (
	"os/exec"
	"syscall"
)

// isolateProcessGroup starts cmd in its own process group so cancellation reaches every
// process the tool spawned, not only the direct child.
func isolateProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
