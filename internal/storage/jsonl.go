// Package storage handles record input and output in JSONL and the SQLite
// audit trail of dedup runs.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matsen/pubmerge/internal/dedupe"
	"github.com/matsen/pubmerge/internal/record"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// LineError describes one input line that could not be decoded.
type LineError struct {
	Path string
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Skipped lists the lines dropped while reading a file.
type Skipped []*LineError

// ReadRecords reads all records from a JSONL file. A line that fails to
// decode is skipped and reported in Skipped; only an unreadable file is an
// error.
func ReadRecords(path string) ([]record.Record, Skipped, error) {
	var recs []record.Record
	skipped, err := scanRecords(path, func(_ int, r record.Record) {
		recs = append(recs, r)
	})
	return recs, skipped, err
}

// ReadSource reads a source file and fills in what the lines leave out:
// an empty source becomes source, and an empty id becomes
// "<source>-<line>".
func ReadSource(path, source string) (record.SourceRecords, Skipped, error) {
	out := record.SourceRecords{Source: source}
	skipped, err := scanRecords(path, func(line int, r record.Record) {
		if r.Source == "" {
			r.Source = source
		}
		if r.ID == "" {
			r.ID = fmt.Sprintf("%s-%d", source, line)
		}
		out.Records = append(out.Records, r)
	})
	return out, skipped, err
}

func scanRecords(path string, fn func(line int, r record.Record)) (Skipped, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening records file: %w", err)
	}
	defer f.Close()

	var skipped Skipped
	scanner := bufio.NewScanner(f)
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var r record.Record
		if err := json.Unmarshal(line, &r); err != nil {
			skipped = append(skipped, &LineError{Path: path, Line: lineNum, Err: err})
			continue
		}
		fn(lineNum, r)
	}

	if err := scanner.Err(); err != nil {
		return skipped, fmt.Errorf("reading records file: %w", err)
	}
	return skipped, nil
}

// EncodeJSONL writes one JSON object per line.
func EncodeJSONL[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, item := range items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("encoding item %d: %w", i, err)
		}
	}
	return nil
}

// WriteRecords writes records to a JSONL file, replacing existing content.
func WriteRecords(path string, recs []record.Record) error {
	return writeFile(path, func(w io.Writer) error { return EncodeJSONL(w, recs) })
}

// WriteLog writes dedup log entries to a JSONL file, replacing existing content.
func WriteLog(path string, entries []dedupe.LogEntry) error {
	return writeFile(path, func(w io.Writer) error { return EncodeJSONL(w, entries) })
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	if err := fn(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
