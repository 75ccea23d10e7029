package watch

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/zulandar/heliograph/internal/session"
)

// Spawn starts a detached `helio watch` process for the session. The
// caller must already hold the lease; the spawned process takes it over
// on its first refresh. contextPath is the project path the session was
// resolved from. Returns the child pid.
func Spawn(sess session.Session, contextPath, helioPath string) (int, error) {
	if helioPath == "" {
		exe, err := os.Executable()
		if err != nil {
			return 0, fmt.Errorf("watch: locate executable: %w", err)
		}
		helioPath = exe
	}

	logPath := sess.Path("watcher.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("watch: open watcher log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(helioPath, "watch", "--root", sess.Root, "--path", contextPath)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("watch: spawn watcher: %w", err)
	}
	pid := cmd.Process.Pid

	// Detach fully: the watcher outlives the hook process.
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("watch: release watcher process: %w", err)
	}
	return pid, nil
}
