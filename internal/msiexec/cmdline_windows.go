//go:build windows

package msiexec

import (
	"os/exec"
	"syscall"
)

// command hands msiexec the command line verbatim. Its parser does not follow
// the CommandLineToArgvW rules that exec.Command quotes for, so PROP="value"
// must arrive exactly as Arguments wrote it.
func command(path, line, op, pkg string, s Settings) (*exec.Cmd, error) {
	cmd := exec.Command(path)
	cmd.SysProcAttr = &syscall.SysProcAttr{CmdLine: line}
	return cmd, nil
}
