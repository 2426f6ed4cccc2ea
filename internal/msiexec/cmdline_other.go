//go:build !windows

package msiexec

import "os/exec"

// command ignores the prebuilt line and passes each argument as its own argv
// element, so paths reach the process exactly as given.
func command(path, line, op, pkg string, s Settings) (*exec.Cmd, error) {
	args := append([]string{op, pkg}, s.Argv()...)
	return exec.Command(path, args...), nil
}
