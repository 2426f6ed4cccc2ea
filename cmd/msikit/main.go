// Copyright (c) 2013-2026, Gerson Kurz, NG Branch Technology GmbH
// MIT License

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/gersonkurz/msikit/internal/cli"
	"github.com/gersonkurz/msikit/internal/msiexec"
)

// Version is set via ldflags at build time
var Version = "1.0.0-dev"

// exitError carries an msiexec result code out to the process exit status.
type exitError struct {
	code msiexec.ResultCode
}

func (e *exitError) Error() string {
	return fmt.Sprintf("msiexec returned %d (%s)", int(e.code), e.code)
}

func main() {
	root := newRootCmd()
	root.SetArgs(normalizeArgs(os.Args[1:]))

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", cli.Error("Error:"), err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var ee *exitError
	switch {
	case errors.As(err, &ee):
		return int(ee.code)
	case errors.Is(err, msiexec.ErrInstallInProgress):
		return int(msiexec.InstallInProgress)
	default:
		return 1
	}
}
