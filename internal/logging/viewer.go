package logging

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Entry is one JSON log record.
type Entry struct {
	Time  time.Time
	Level slog.Level
	Msg   string
	// Attrs holds the remaining top-level fields as raw JSON.
	Attrs map[string]string
	Raw   string
}

// ParseEntry decodes a log line. ok is false for lines that are not JSON records.
func ParseEntry(line string) (entry Entry, ok bool) {
	if !gjson.Valid(line) {
		return Entry{Raw: line}, false
	}
	record := gjson.Parse(line)
	if !record.IsObject() {
		return Entry{Raw: line}, false
	}

	entry = Entry{Raw: line, Attrs: map[string]string{}}
	record.ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case slog.TimeKey:
			entry.Time, _ = time.Parse(time.RFC3339Nano, value.String())
		case slog.LevelKey:
			entry.Level = ParseLevel(value.String())
		case slog.MessageKey:
			entry.Msg = value.String()
		default:
			entry.Attrs[key.String()] = value.Raw
		}
		return true
	})
	return entry, true
}

// Tail returns the last n records of the file at path at or above minLevel.
func Tail(path string, n int, minLevel slog.Level) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		entry, ok := ParseEntry(scanner.Text())
		if !ok || entry.Level < minLevel {
			continue
		}
		entries = append(entries, entry)
		if n > 0 && len(entries) > n {
			entries = entries[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	return entries, nil
}

// FormatEntry renders an entry on one line: time, level, message, then
// attributes in key order.
func FormatEntry(w io.Writer, e Entry) error {
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", e.Time.Format("2006-01-02 15:04:05.000"), e.Level.String(), e.Msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, e.Attrs[k])
	}
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}
