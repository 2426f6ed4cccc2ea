// Package cli provides console styling for the command line tool.
package cli

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
	boldStyle     = lipgloss.NewStyle().Bold(true)
	filenameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4"))
	numberStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A855F7"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// ColorsEnabled controls whether styled output is enabled.
// Set to false to disable colors (e.g., via --no-color flag).
var ColorsEnabled = true

func init() {
	ColorsEnabled = detectColors()
}

// detectColors honors NO_COLOR (https://no-color.org/) and requires stdout
// to be a terminal.
func detectColors() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// DisableColors turns off styled output.
func DisableColors() {
	ColorsEnabled = false
}

// EnableColors turns on styled output if the terminal supports it.
func EnableColors() {
	ColorsEnabled = detectColors()
}

func render(style lipgloss.Style, text string) string {
	if !ColorsEnabled {
		return text
	}
	return style.Render(text)
}

// Error formats text for errors and failures.
func Error(text string) string { return render(errorStyle, text) }

// Success formats text for success messages.
func Success(text string) string { return render(successStyle, text) }

// Warning formats text for warnings.
func Warning(text string) string { return render(warningStyle, text) }

// Info formats informational and progress messages.
func Info(text string) string { return render(infoStyle, text) }

// Bold formats text in bold (for emphasis, section headers).
func Bold(text string) string { return render(boldStyle, text) }

// Filename formats a filename or path.
func Filename(text string) string { return render(filenameStyle, text) }

// Number formats a number.
func Number(text string) string { return render(numberStyle, text) }

// Muted formats secondary detail such as tool output.
func Muted(text string) string { return render(mutedStyle, text) }
