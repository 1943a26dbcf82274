package input

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/loamdb/loam/errors"
)

// Report is the append-only bad-entry report: plain text, one line per entry,
// written once per run. Not safe for concurrent use on its own; the collector
// serializes access.
type Report struct {
	path    string
	file    *os.File
	w       *bufio.Writer
	entries int64
}

// OpenReport truncates and opens the report file for this run
func OpenReport(path string) (*Report, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bad-entry report %s", path)
	}
	return &Report{path: abs, file: f, w: bufio.NewWriter(f)}, nil
}

// Path returns the absolute report location for operator output
func (r *Report) Path() string { return r.path }

// Entries returns the number of lines written so far
func (r *Report) Entries() int64 { return r.entries }

// Write appends one entry line
func (r *Report) Write(entry BadEntry) error {
	if _, err := fmt.Fprintln(r.w, entry.String()); err != nil {
		return errors.Wrap(err, "failed to append to bad-entry report")
	}
	r.entries++
	return nil
}

// Close flushes buffered lines, writes the final summary and releases the file.
// A run with no recorded entries leaves the report empty.
func (r *Report) Close() error {
	if r.entries > 0 {
		fmt.Fprintf(r.w, "total bad entries: %d\n", r.entries)
	}
	if err := r.w.Flush(); err != nil {
		r.file.Close()
		return errors.Wrap(err, "failed to flush bad-entry report")
	}
	return r.file.Close()
}
