//go:build !windows
// +build !windows

package converter

import (
	"os"
	"os/exec"
	"syscall"
)

// safeCommand starts the converter in its own process group, so a Ctrl+C
// aimed at ibdreplay does not kill a conversion that is already running.
func safeCommand(name string, args ...string) *exec.Cmd {
	cmd := exec.Command(name, args...)

	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true, // Create new process group
		Pgid:    0,    // Use the new process's PID as the PGID
	}

	// Detach stdin so the tool never waits on the terminal
	cmd.Stdin = nil
	cmd.Env = append(os.Environ(), "TERM=dumb")

	return cmd
}
