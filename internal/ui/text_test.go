package ui

import (
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestFormatterWithColor(t *testing.T) {
	os.Unsetenv("NO_COLOR")
	prev := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = prev }()

	result := Code.Sprint("kinvault export")
	if strings.Contains(result, "`") {
		t.Errorf("Code.Sprint should not contain backticks when color is enabled, got: %s", result)
	}
	if !strings.Contains(result, "\x1b[") {
		t.Errorf("Code.Sprint should contain ANSI escape codes when color is enabled, got: %s", result)
	}
}

func TestFormatterWithNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		name      string
		formatter Formatter
		input     string
		want      string
	}{
		{"Code adds backticks", Code, "kinvault doctor", "`kinvault doctor`"},
		{"Path has no decoration", Path, "export.json", "export.json"},
		{"Success has no decoration", Success, "✓", "✓"},
		{"Error has no decoration", Error, "✗", "✗"},
		{"Highlight adds quotes", Highlight, "Priya", "'Priya'"},
		{"Muted adds parentheses", Muted, "none", "(none)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.formatter.Sprint(tt.input); got != tt.want {
				t.Errorf("%s.Sprint(%q) = %q, want %q", tt.name, tt.input, got, tt.want)
			}
		})
	}
}

func TestEnsureNewline(t *testing.T) {
	if EnsureNewline("") != "\n" || EnsureNewline("a") != "a\n" || EnsureNewline("a\n") != "a\n" {
		t.Error("EnsureNewline did not normalize trailing newline")
	}
}

func TestMarksAndStatusWithNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	if Done() != "✓" || Failed() != "✗" || Caution() != "⚠" {
		t.Errorf("marks = %q %q %q", Done(), Failed(), Caution())
	}
	for _, s := range []string{"completed", "failed", "uploading", "pending"} {
		if got := Status(s); got != s {
			t.Errorf("Status(%q) = %q", s, got)
		}
	}
}

func TestStatusColors(t *testing.T) {
	os.Unsetenv("NO_COLOR")
	prev := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = prev }()

	if Status("completed") != Success.Sprint("completed") {
		t.Error("completed should use Success")
	}
	if Status("failed") != Error.Sprint("failed") {
		t.Error("failed should use Error")
	}
	if Status("pending") != Warning.Sprint("pending") {
		t.Error("pending should use Warning")
	}
}
