// Package ui provides semantic text formatting for CLI output. Colors are
// dropped when NO_COLOR is set or the terminal cannot show them; some
// formatters then fall back to text decorations so the output still reads
// the same in logs and pipes.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Formatter applies semantic formatting to text.
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

// Sprint formats the arguments like fmt.Sprint and applies the formatter.
func (f Formatter) Sprint(a ...interface{}) string {
	text := fmt.Sprint(a...)
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// Sprintf formats like fmt.Sprintf and applies the formatter.
func (f Formatter) Sprintf(format string, a ...interface{}) string {
	return f.Sprint(fmt.Sprintf(format, a...))
}

// EnsureNewline ensures the string ends with a newline character.
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

// noColor reports whether output should be plain. NO_COLOR wins over
// fatih/color's own terminal detection.
func noColor() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	return color.NoColor
}

// Semantic formatters for vault output.
var (
	// Code formats commands the user can run next, e.g. `kinvault doctor`.
	// Yellow, or `backticks` without color.
	Code = Formatter{color.New(color.FgYellow), "`", "`"}

	// Path formats export files and database paths.
	Path = Formatter{color.New(color.FgYellow), "", ""}

	Success = Formatter{color.New(color.FgGreen), "", ""}
	Error   = Formatter{color.New(color.FgRed), "", ""}
	Warning = Formatter{color.New(color.FgYellow), "", ""}

	// Highlight formats member names and usernames.
	// Cyan, or 'quotes' without color.
	Highlight = Formatter{color.New(color.FgCyan), "'", "'"}

	// Muted formats ids, counts and other secondary text.
	// Gray, or (parentheses) without color.
	Muted = Formatter{color.New(color.FgHiBlack), "(", ")"}
)

// Result marks. They are functions so NO_COLOR is read at print time.
func Done() string    { return Success.Sprint("✓") }
func Failed() string  { return Error.Sprint("✗") }
func Caution() string { return Warning.Sprint("⚠") }

// Status colors a lifecycle word such as an archive status: green for
// completed, red for failed, yellow for anything still in flight.
func Status(s string) string {
	switch s {
	case "completed":
		return Success.Sprint(s)
	case "failed":
		return Error.Sprint(s)
	}
	return Warning.Sprint(s)
}
