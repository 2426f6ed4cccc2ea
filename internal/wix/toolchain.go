// Package wix drives the WiX v3 command line tools that turn an authoring
// document into an MSI package.
package wix

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
)

// ErrEmptyPath is returned when a document, object or output path is empty.
var ErrEmptyPath = errors.New("path is empty")

// ToolError reports a tool run that failed or produced no artifact.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int    // -1 if the tool did not run to completion
	Output   string // combined stdout and stderr
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed", filepath.Base(e.Tool))
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(" with exit code %d", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// Toolchain holds the locations of candle and light.
type Toolchain struct {
	Candle string
	Light  string
	// RetainObjects keeps the intermediate .wixobj after Build.
	RetainObjects bool
	Logger        *log.Logger
}

// NewToolchain locates candle and light, see FindTool.
func NewToolchain() *Toolchain {
	return &Toolchain{
		Candle: FindTool("candle"),
		Light:  FindTool("light"),
		Logger: log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "wix",
		}),
	}
}

// FindTool returns the path to a WiX tool. The bin folder of the WiX
// installation named by the WIX environment variable is preferred over PATH.
// If the tool is found nowhere, the bare name is returned.
func FindTool(name string) string {
	exe := name
	if runtime.GOOS == "windows" {
		exe += ".exe"
	}

	if root := os.Getenv("WIX"); root != "" {
		candidate := filepath.Join(root, "bin", exe)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	if path, err := exec.LookPath(exe); err == nil {
		return path
	}
	return exe
}

// Compile runs candle on the document and returns the object file path,
// which sits next to the document with a .wixobj extension.
func (tc *Toolchain) Compile(documentPath string) (string, error) {
	if documentPath == "" {
		return "", fmt.Errorf("document: %w", ErrEmptyPath)
	}

	objectPath := replaceExt(documentPath, ".wixobj")
	args := []string{"-nologo", "-out", objectPath, documentPath}
	if err := tc.run(tc.Candle, args, objectPath); err != nil {
		return "", err
	}
	return objectPath, nil
}

// Link runs light on the object file. An empty outputPath puts the package
// next to the object file with a .msi extension.
func (tc *Toolchain) Link(objectPath, outputPath string) (string, error) {
	if objectPath == "" {
		return "", fmt.Errorf("object: %w", ErrEmptyPath)
	}
	if outputPath == "" {
		outputPath = replaceExt(objectPath, ".msi")
	}

	args := []string{"-nologo", "-out", outputPath, objectPath}
	if err := tc.run(tc.Light, args, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

// Build compiles and links the document. The object file is removed
// afterwards unless RetainObjects is set.
func (tc *Toolchain) Build(documentPath, outputPath string) (string, error) {
	objectPath, err := tc.Compile(documentPath)
	if err != nil {
		return "", fmt.Errorf("compile: %w", err)
	}
	if !tc.RetainObjects {
		defer func() {
			if err := os.Remove(objectPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				tc.logger().Warn("could not remove object file", "path", objectPath, "err", err)
			}
		}()
	}

	packagePath, err := tc.Link(objectPath, outputPath)
	if err != nil {
		return "", fmt.Errorf("link: %w", err)
	}
	return packagePath, nil
}

// Available reports whether both tools can be found.
func (tc *Toolchain) Available() bool {
	return toolExists(tc.Candle) && toolExists(tc.Light)
}

// Version returns the first line candle prints about itself, or
// "(unavailable)" if it cannot be run.
func (tc *Toolchain) Version() string {
	cmd := exec.Command(tc.Candle, "-?")
	output, _ := cmd.Output()
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return "(unavailable)"
}

// run executes tool and checks that it exited cleanly and wrote artifact.
// Any existing artifact is removed first.
func (tc *Toolchain) run(tool string, args []string, artifact string) error {
	tc.logger().Info("running", "tool", filepath.Base(tool), "args", strings.Join(args, " "))

	// A leftover from an earlier build must not pass for this run's output.
	if err := os.Remove(artifact); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &ToolError{Tool: tool, Args: args, ExitCode: -1, Err: fmt.Errorf("removing stale %s: %w", artifact, err)}
	}

	cmd := exec.Command(tool, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		toolErr := &ToolError{Tool: tool, Args: args, ExitCode: -1, Output: out.String()}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			toolErr.ExitCode = exitErr.ExitCode()
		} else {
			toolErr.Err = err
		}
		tc.logger().Error("tool failed", "tool", filepath.Base(tool), "code", toolErr.ExitCode)
		return toolErr
	}

	if _, err := os.Stat(artifact); err != nil {
		return &ToolError{
			Tool:     tool,
			Args:     args,
			ExitCode: 0,
			Output:   out.String(),
			Err:      fmt.Errorf("no output at %s", artifact),
		}
	}
	tc.logger().Debug("wrote", "path", artifact)
	return nil
}

func (tc *Toolchain) logger() *log.Logger {
	if tc.Logger == nil {
		return log.Default()
	}
	return tc.Logger
}

func toolExists(path string) bool {
	if path == "" {
		return false
	}
	if filepath.IsAbs(path) {
		_, err := os.Stat(path)
		return err == nil
	}
	_, err := exec.LookPath(path)
	return err == nil
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
