// Package msiexec encodes install settings as an msiexec command line and
// runs the Windows Installer engine under the installer lock.
package msiexec

import "strings"

// Settings describes one install invocation. The zero value installs for the
// current user with full UI and emits no arguments.
type Settings struct {
	InstallDir    string
	Scope         InstallScope
	Reboot        RebootPolicy
	Reinstall     ReinstallPolicy
	ReinstallMode ReinstallMode
	UI            UILevel
	TransformPath string
}

// Arguments encodes s as public properties and switches, in a fixed order and
// separated by single spaces. Paths are always quoted.
func (s Settings) Arguments() string {
	return strings.Join(s.fields(true), " ")
}

// Argv returns the same arguments as Arguments, one element each and with
// paths unquoted, for passing to a process without a command-line parser.
func (s Settings) Argv() []string {
	return s.fields(false)
}

func (s Settings) fields(quote bool) []string {
	var args []string
	path := func(name, value string) string {
		if quote {
			return name + `="` + value + `"`
		}
		return name + "=" + value
	}

	if s.InstallDir != "" {
		args = append(args, path("INSTALLDIR", s.InstallDir))
	}
	if v := tokenOf(scopeTable, s.Scope); v != "" {
		args = append(args, "ALLUSERS="+v)
	}
	if v := tokenOf(rebootTable, s.Reboot); v != "" {
		args = append(args, "REBOOT="+v)
	}
	if v := tokenOf(reinstallTable, s.Reinstall); v != "" {
		args = append(args, "REINSTALL="+v)
	}
	if v := tokenOf(modeTable, s.ReinstallMode); v != "" {
		args = append(args, "REINSTALLMODE="+v)
	}
	if v := tokenOf(uiTable, s.UI); v != "" {
		args = append(args, v)
	}
	if s.TransformPath != "" {
		args = append(args, path("TRANSFORMS", s.TransformPath))
	}

	return args
}
