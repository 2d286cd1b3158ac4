// Package runlog writes the per-run CSV logs (truth, measurements, tracks,
// residuals) and maintains the FNV-1a determinism hash over the track
// output. Sinks follow scoped acquisition: opened on construction, flushed
// and released on Close.
package runlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// Writer is a single CSV sink.
type Writer struct {
	f *os.File
	w *csv.Writer
}

// NewWriter creates (truncating) the file at path and writes the header row.
func NewWriter(path string, header []string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header %s: %w", path, err)
	}
	return &Writer{f: f, w: w}, nil
}

// Row writes one record.
func (w *Writer) Row(fields ...string) error {
	return w.w.Write(fields)
}

// Close flushes buffered rows and releases the file. Safe to call on all
// exit paths; the first error wins.
func (w *Writer) Close() error {
	w.w.Flush()
	ferr := w.w.Error()
	cerr := w.f.Close()
	if ferr != nil {
		return ferr
	}
	return cerr
}

// Float formats v with 17 significant digits, enough to round-trip a double
// exactly, so logged values compare bit-for-bit across runs.
func Float(v float64) string {
	return strconv.FormatFloat(v, 'g', 17, 64)
}

// Int formats v in decimal.
func Int(v int) string { return strconv.Itoa(v) }

// Uint formats v in decimal.
func Uint(v uint32) string { return strconv.FormatUint(uint64(v), 10) }

// Bool formats v as 1 or 0.
func Bool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
