// Package editlog parses chronological edit logs into typed edit records.
package editlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pierrec/lz4/v4"
)

// TimestampLayout is the calendar layout of the joined date and time fields.
const TimestampLayout = "2006-01-02 15:04:05"

// Field positions after the leading ignorable token is dropped.
const (
	fieldDate = iota
	fieldTime
	fieldThird
	fieldFourth
	fieldFifth
)

const (
	minFields      = 4
	flaggedFields  = 5
	lz4Suffix      = ".lz4"
	maxLineBytes   = 1 << 20
	initialBufSize = 64 * 1024
)

// Sentinel parse failures, wrapped by ParseError.
var (
	ErrMissingHeader = errors.New("missing header line")
	ErrTooFewFields  = errors.New("too few fields")
	ErrBadTimestamp  = errors.New("malformed date/time")
	ErrBadVersion    = errors.New("version is not an integer")
	ErrBadRevertFlag = errors.New("revert flag is not a boolean")
)

// EditRecord is a single edit taken from the log. It is never mutated after parsing.
type EditRecord struct {
	Time    time.Time `json:"time"    yaml:"time"`
	Editor  string    `json:"editor"  yaml:"editor"`
	Version int       `json:"version" yaml:"version"`
	// Line is the 1-based line number in the source log; it identifies the record.
	Line int `json:"line" yaml:"line"`
	// Revert is set when the log carries a revert-flag column and it is true.
	Revert bool `json:"revert" yaml:"revert"`
}

// ParseError reports a malformed log line.
type ParseError struct {
	Err  error
	Text string
	Line int
}

// Error implements error.
func (e *ParseError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}

	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

// Unwrap returns the underlying sentinel.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse reads an edit log. The first line is a header and is discarded.
// Records are returned in file order; sorting is the caller's job.
func Parse(r io.Reader) ([]EditRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialBufSize), maxLineBytes)

	if !scanner.Scan() {
		scanErr := scanner.Err()
		if scanErr != nil {
			return nil, fmt.Errorf("read header: %w", scanErr)
		}

		return nil, &ParseError{Line: 1, Err: ErrMissingHeader}
	}

	var records []EditRecord

	lineNo := 1

	for scanner.Scan() {
		lineNo++

		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		rec, err := parseLine(text, lineNo)
		if err != nil {
			return nil, err
		}

		records = append(records, rec)
	}

	scanErr := scanner.Err()
	if scanErr != nil {
		return nil, fmt.Errorf("read line %d: %w", lineNo+1, scanErr)
	}

	return records, nil
}

// ParseFile opens path and parses it. Files ending in ".lz4" are decompressed
// as LZ4 frames on the fly.
func ParseFile(path string) ([]EditRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open edit log: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, lz4Suffix) {
		r = lz4.NewReader(f)
	}

	records, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return records, nil
}

func parseLine(text string, lineNo int) (EditRecord, error) {
	fields := strings.Fields(text)
	if len(fields) > 0 {
		fields = fields[1:]
	}

	if len(fields) < minFields {
		return EditRecord{}, &ParseError{Line: lineNo, Text: text, Err: ErrTooFewFields}
	}

	ts, err := time.Parse(TimestampLayout, fields[fieldDate]+" "+fields[fieldTime])
	if err != nil {
		return EditRecord{}, &ParseError{Line: lineNo, Text: text, Err: fmt.Errorf("%w: %w", ErrBadTimestamp, err)}
	}

	rec := EditRecord{Time: ts, Line: lineNo}

	versionField, editorField := fields[fieldThird], fields[fieldFourth]

	if len(fields) >= flaggedFields {
		flag, flagErr := parseFlag(fields[fieldThird])
		if flagErr != nil {
			return EditRecord{}, &ParseError{Line: lineNo, Text: text, Err: flagErr}
		}

		rec.Revert = flag
		versionField, editorField = fields[fieldFourth], fields[fieldFifth]
	}

	version, err := strconv.Atoi(versionField)
	if err != nil {
		return EditRecord{}, &ParseError{Line: lineNo, Text: text, Err: fmt.Errorf("%w: %q", ErrBadVersion, versionField)}
	}

	rec.Version = version
	rec.Editor = editorField

	return rec, nil
}

func parseFlag(s string) (bool, error) {
	switch s {
	case "1", "true", "True", "TRUE":
		return true, nil
	case "0", "false", "False", "FALSE":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrBadRevertFlag, s)
	}
}

// SortByTime returns a copy of records ordered by timestamp. Records with equal
// timestamps keep their file order.
func SortByTime(records []EditRecord) []EditRecord {
	sorted := slices.Clone(records)

	slices.SortStableFunc(sorted, func(a, b EditRecord) int {
		return a.Time.Compare(b.Time)
	})

	return sorted
}

// IsSorted reports whether records are in non-decreasing time order.
func IsSorted(records []EditRecord) bool {
	return slices.IsSortedFunc(records, func(a, b EditRecord) int {
		return a.Time.Compare(b.Time)
	})
}
