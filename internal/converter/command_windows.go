//go:build windows
// +build windows

package converter

import "os/exec"

// safeCommand creates the converter command. Windows has no process groups
// in the Unix sense, so the child shares the console with ibdreplay.
func safeCommand(name string, args ...string) *exec.Cmd {
	return exec.Command(name, args...)
}
