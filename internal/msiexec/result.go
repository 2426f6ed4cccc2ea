package msiexec

import (
	"errors"
	"fmt"
)

// ResultCode is the exit code of msiexec. Only the named codes carry meaning
// here; any other value is passed through as is.
type ResultCode int

const (
	Success            ResultCode = 0
	FatalError         ResultCode = 1603
	InstallInProgress  ResultCode = 1618
	InvalidCommandLine ResultCode = 1624
)

// ErrInstallInProgress is returned when another installation holds the
// installer service, either seen through the lock or reported by msiexec.
var ErrInstallInProgress = errors.New("another installation is already in progress")

var resultNames = map[ResultCode]string{
	Success:            "success",
	FatalError:         "fatal error",
	InstallInProgress:  "install in progress",
	InvalidCommandLine: "invalid command line",
}

func (c ResultCode) String() string {
	if name, ok := resultNames[c]; ok {
		return name
	}
	return fmt.Sprintf("exit code %d", int(c))
}

// Known reports whether c is one of the named result codes.
func (c ResultCode) Known() bool {
	_, ok := resultNames[c]
	return ok
}
