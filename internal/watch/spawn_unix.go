//go:build !windows

package watch

import (
	"os/exec"
	"syscall"
)

// detach puts the child in its own session so it survives the parent hook
// process exiting.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
