package msiexec

import (
	"fmt"
	"strings"
)

// InstallScope selects per-user or per-machine installation.
type InstallScope int

const (
	CurrentUser InstallScope = iota
	AllUsers
	PerMachineAdmin
)

// RebootPolicy controls whether the engine restarts the machine.
type RebootPolicy int

const (
	RebootNone RebootPolicy = iota
	RebootForce
	RebootSuppress
	RebootReallySuppress
)

// ReinstallPolicy controls which features are reinstalled.
type ReinstallPolicy int

const (
	ReinstallNone ReinstallPolicy = iota
	ReinstallAll
)

// ReinstallMode selects which files a reinstall replaces.
type ReinstallMode int

const (
	ModeDefault ReinstallMode = iota
	ModeFileAbsent
	ModeOlderVersion
	ModeDifferentVersion
	ModeVerifyAndRepair
)

// UILevel is the engine's user interface verbosity.
type UILevel int

const (
	UIFull UILevel = iota
	UIBasic
	UISilent
)

// enumInfo pairs a user-facing name with the value written to the command
// line. An empty token means nothing is written.
type enumInfo struct {
	name  string
	token string
}

var scopeTable = map[InstallScope]enumInfo{
	CurrentUser:     {"currentuser", ""},
	AllUsers:        {"allusers", "1"},
	PerMachineAdmin: {"permachineadmin", "2"},
}

var rebootTable = map[RebootPolicy]enumInfo{
	RebootNone:           {"none", ""},
	RebootForce:          {"force", "Force"},
	RebootSuppress:       {"suppress", "Suppress"},
	RebootReallySuppress: {"reallysuppress", "ReallySuppress"},
}

var reinstallTable = map[ReinstallPolicy]enumInfo{
	ReinstallNone: {"none", ""},
	ReinstallAll:  {"all", "ALL"},
}

var modeTable = map[ReinstallMode]enumInfo{
	ModeDefault:          {"default", ""},
	ModeFileAbsent:       {"fileabsent", "e"},
	ModeOlderVersion:     {"olderversion", "m"},
	ModeDifferentVersion: {"differentversion", "a"},
	ModeVerifyAndRepair:  {"verifyandrepair", "v"},
}

var uiTable = map[UILevel]enumInfo{
	UIFull:   {"full", ""},
	UIBasic:  {"basic", "/qb"},
	UISilent: {"silent", "/qn"},
}

func (s InstallScope) String() string    { return nameOf(scopeTable, s, "InstallScope") }
func (r RebootPolicy) String() string    { return nameOf(rebootTable, r, "RebootPolicy") }
func (r ReinstallPolicy) String() string { return nameOf(reinstallTable, r, "ReinstallPolicy") }
func (m ReinstallMode) String() string   { return nameOf(modeTable, m, "ReinstallMode") }
func (u UILevel) String() string         { return nameOf(uiTable, u, "UILevel") }

// ParseInstallScope maps a name such as "allusers" to an InstallScope.
func ParseInstallScope(s string) (InstallScope, error) {
	return parseName(scopeTable, s, "install scope")
}

// ParseRebootPolicy maps a name such as "suppress" to a RebootPolicy.
func ParseRebootPolicy(s string) (RebootPolicy, error) {
	return parseName(rebootTable, s, "reboot policy")
}

// ParseReinstallPolicy maps "none" or "all" to a ReinstallPolicy.
func ParseReinstallPolicy(s string) (ReinstallPolicy, error) {
	return parseName(reinstallTable, s, "reinstall policy")
}

// ParseReinstallMode maps a name such as "verifyandrepair", or the mode
// letter itself, to a ReinstallMode.
func ParseReinstallMode(s string) (ReinstallMode, error) {
	for m, info := range modeTable {
		if info.token != "" && s == info.token {
			return m, nil
		}
	}
	return parseName(modeTable, s, "reinstall mode")
}

// ParseUILevel maps a name such as "silent" to a UILevel.
func ParseUILevel(s string) (UILevel, error) {
	return parseName(uiTable, s, "UI level")
}

func nameOf[T ~int](table map[T]enumInfo, v T, typeName string) string {
	if info, ok := table[v]; ok {
		return info.name
	}
	return fmt.Sprintf("%s(%d)", typeName, int(v))
}

func tokenOf[T ~int](table map[T]enumInfo, v T) string {
	return table[v].token
}

// parseName matches case-insensitively and ignores dashes and underscores, so
// "all-users" and "ALL_USERS" both work.
func parseName[T ~int](table map[T]enumInfo, s, what string) (T, error) {
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(s))
	for v, info := range table {
		if info.name == key {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown %s '%s'", what, s)
}
