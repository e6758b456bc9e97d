// Package output formats CLI output as human-readable text or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
)

// Format selects how command results are printed.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	// FormatAuto picks text for terminals and JSON for pipes and files.
	FormatAuto Format = "auto"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatAuto:
		return f, nil
	case "":
		return FormatAuto, nil
	default:
		return "", fmt.Errorf("unknown format %q (valid: text, json, auto)", s)
	}
}

// IsTerminal reports whether out is an interactive terminal.
func IsTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Writer prints command results.
type Writer struct {
	out    io.Writer
	format Format
	icons  bool
}

// New returns a Writer for out. FormatAuto is resolved against out here.
func New(out io.Writer, format Format) *Writer {
	tty := IsTerminal(out)
	if format == FormatAuto || format == "" {
		if tty {
			format = FormatText
		} else {
			format = FormatJSON
		}
	}
	return &Writer{out: out, format: format, icons: tty}
}

// Format returns the resolved output format.
func (w *Writer) Format() Format {
	return w.format
}

// IsJSON reports whether results are printed as JSON.
func (w *Writer) IsJSON() bool {
	return w.format == FormatJSON
}

// Status prints a status line. The icon is only shown on terminals.
// Errors from writing are ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if w.icons && icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
		return
	}
	_, _ = fmt.Fprintln(w.out, msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Status("✅", fmt.Sprintf(format, args...))
}

// Warningf prints a formatted warning.
func (w *Writer) Warningf(format string, args ...any) {
	w.Status("⚠️ ", fmt.Sprintf(format, args...))
}

// Errorf prints a formatted error.
func (w *Writer) Errorf(format string, args ...any) {
	w.Status("❌", fmt.Sprintf(format, args...))
}

// JSON prints v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// KeyValues prints aligned "key: value" pairs in the given order.
func (w *Writer) KeyValues(pairs [][2]string) error {
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	for _, kv := range pairs {
		_, _ = fmt.Fprintf(tw, "%s:\t%s\n", kv[0], kv[1])
	}
	return tw.Flush()
}

// Table prints rows under headers in aligned columns.
func (w *Writer) Table(headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
