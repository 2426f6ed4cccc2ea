package msiexec

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gersonkurz/msikit/internal/execlock"
)

// ErrEmptyPackage is returned when an operation is given no package path.
var ErrEmptyPackage = errors.New("package path is empty")

// defaultRepairMode is what msiexec uses for /f when no mode is given.
const defaultRepairMode = "omus"

// Result is the outcome of one msiexec run.
type Result struct {
	Code   ResultCode
	Output string // combined stdout and stderr
}

// Runner drives msiexec. Each run is wrapped in Lock, so it fails with
// ErrInstallInProgress while another installation is active.
type Runner struct {
	// Path to msiexec. NewRunner fills in the system copy.
	Path string
	// Lock guards each run. Nil runs without coordination.
	Lock *execlock.Lock
	// Wait is how long to wait for Lock. Zero fails at once if it is held;
	// execlock.Infinite waits forever.
	Wait   time.Duration
	Logger *log.Logger

	// start replaces exec in tests; POSIX exit statuses cannot carry 1603.
	start func(op, pkg string, s Settings) (Result, error)
}

// NewRunner returns a runner for the system msiexec, guarded by the installer
// service mutex.
func NewRunner() *Runner {
	return &Runner{
		Path: defaultPath(),
		Lock: execlock.NewInstallerLock(),
		Logger: log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "msiexec",
		}),
	}
}

func defaultPath() string {
	if runtime.GOOS == "windows" {
		if windir := os.Getenv("WINDIR"); windir != "" {
			return filepath.Join(windir, "System32", "msiexec.exe")
		}
		return "msiexec.exe"
	}
	return "msiexec"
}

// Install runs msiexec /i on pkg.
func (r *Runner) Install(pkg string, s Settings) (Result, error) {
	return r.run("/i", pkg, s)
}

// Uninstall runs msiexec /x on pkg, which may be a package path or a product code.
func (r *Runner) Uninstall(pkg string, s Settings) (Result, error) {
	return r.run("/x", pkg, s)
}

// Repair runs msiexec /f on pkg. The settings' reinstall mode selects the
// repair letter; the default is "omus".
func (r *Runner) Repair(pkg string, s Settings) (Result, error) {
	op := RepairSwitch(s.ReinstallMode)
	s.ReinstallMode = ModeDefault
	return r.run(op, pkg, s)
}

// RepairSwitch returns the /f switch Repair passes for mode.
func RepairSwitch(mode ReinstallMode) string {
	letters := tokenOf(modeTable, mode)
	if letters == "" {
		letters = defaultRepairMode
	}
	return "/f" + letters
}

// CommandLine returns the full command line for an operation, quoted the way
// msiexec receives it.
func (r *Runner) CommandLine(op, pkg string, s Settings) string {
	line := quote(r.path()) + " " + op + " " + quote(pkg)
	if args := s.Arguments(); args != "" {
		line += " " + args
	}
	return line
}

func (r *Runner) run(op, pkg string, s Settings) (Result, error) {
	if pkg == "" {
		return Result{}, ErrEmptyPackage
	}

	var res Result
	var runErr error
	call := func() error {
		start := r.start
		if start == nil {
			start = r.exec
		}
		res, runErr = start(op, pkg, s)
		return nil
	}

	var err error
	switch {
	case r.Lock == nil:
		err = call()
	case r.Wait == 0:
		err = r.Lock.Do(call)
	default:
		err = r.Lock.DoWait(r.Wait, call)
	}
	if err != nil {
		if errors.Is(err, execlock.ErrConflict) || errors.Is(err, execlock.ErrTimeout) {
			r.logger().Warn("installer is busy", "lock", r.Lock.Name())
			return Result{Code: InstallInProgress}, fmt.Errorf("%w: %w", ErrInstallInProgress, err)
		}
		return res, err
	}
	if runErr != nil {
		return res, runErr
	}

	switch res.Code {
	case Success:
		r.logger().Info("msiexec finished", "op", op, "package", pkg)
	case InstallInProgress:
		return res, ErrInstallInProgress
	default:
		r.logger().Error("msiexec failed", "op", op, "package", pkg, "code", int(res.Code), "result", res.Code)
	}
	return res, nil
}

func (r *Runner) exec(op, pkg string, s Settings) (Result, error) {
	line := r.CommandLine(op, pkg, s)
	r.logger().Debug("running", "cmdline", line)

	cmd, err := command(r.path(), line, op, pkg, s)
	if err != nil {
		return Result{}, err
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err = cmd.Run()
	res := Result{Output: out.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.Code = ResultCode(exitErr.ExitCode())
			return res, nil
		}
		return res, fmt.Errorf("running %s: %w", r.path(), err)
	}
	return res, nil
}

func (r *Runner) path() string {
	if r.Path == "" {
		return defaultPath()
	}
	return r.Path
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}

func quote(s string) string {
	return `"` + s + `"`
}
