package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"

	kverrors "github.com/dukerupert/kinvault/internal/errors"
	"github.com/dukerupert/kinvault/internal/kind"
	"github.com/dukerupert/kinvault/internal/model"
	"github.com/dukerupert/kinvault/internal/ui"
)

// startSpinner shows message on stderr while a slow operation runs. The
// returned cleanup stops it and prints FinalMSG, if set, to stdout.
// FinalMSG does not need a trailing newline.
func (a *app) startSpinner(message string) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(a.opts.Stderr))
	s.Suffix = " " + message
	_ = s.Color("cyan")

	if !a.verbose {
		s.Start()
	}

	cleanup := func() {
		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			s.FinalMSG = ""
		}
		if !a.verbose {
			s.Stop()
		}
		if finalMsg != "" {
			fmt.Fprint(a.opts.Stdout, finalMsg)
		}
	}
	return s, cleanup
}

func parseID(label, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q: %w", label, s, kverrors.ErrValidation)
	}
	return id, nil
}

func parseKind(s string) (kind.Kind, error) {
	k, err := kind.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("%v: %w", err, kverrors.ErrValidation)
	}
	return k, nil
}

// parseFields turns repeated name=value pairs into record fields. Names
// are checked against k so typos fail instead of being dropped.
func parseFields(k kind.Kind, pairs []string) (model.Fields, error) {
	d, _ := kind.Describe(k)
	fields := make(model.Fields, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("field %q must be name=value: %w", p, kverrors.ErrValidation)
		}
		if _, known := d.Field(name); !known {
			return nil, fmt.Errorf("%s has no field %q (fields: %s): %w",
				d.Name, name, strings.Join(d.FieldNames(), ", "), kverrors.ErrValidation)
		}
		fields[name] = value
	}
	return fields, nil
}

func printMember(w io.Writer, m *model.FamilyMember) {
	fmt.Fprintf(w, "%s %s\n", ui.Muted.Sprintf("#%d", m.ID), ui.Highlight.Sprint(m.Name))
	for _, row := range [][2]string{
		{"relationship", m.Relationship},
		{"dob", m.DOB},
		{"notes", m.Notes},
	} {
		if row[1] != "" {
			fmt.Fprintf(w, "  %-13s %s\n", row[0]+":", row[1])
		}
	}
}

func printRecord(w io.Writer, k kind.Kind, r *model.Record) {
	d, _ := kind.Describe(k)
	fmt.Fprintf(w, "%s %s\n", ui.Muted.Sprintf("#%d", r.ID), d.Label)
	for _, f := range d.Fields {
		v := r.Fields[f.Name]
		if v == nil || v == "" {
			continue
		}
		if n, ok := v.(float64); ok {
			v = strconv.FormatFloat(n, 'f', -1, 64)
		}
		fmt.Fprintf(w, "  %-20s %v\n", f.Name+":", v)
	}
}
