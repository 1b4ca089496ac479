// Package trace fuses dynamic call-trace data with extracted
// relationships, producing heat-weighted edges and the overlay payload
// the rendering front end consumes.
//
// Trace events arrive as a JSON-lines stream from an external tracer,
// one event per line. Heat only ever emphasizes; it never changes an
// edge's structural meaning.
package trace

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Event is one aggregated call observation from the tracer.
type Event struct {
	// Caller and Callee are symbol names as the tracer reported them.
	Caller string `json:"caller"`
	Callee string `json:"callee"`

	// Count is the invocation count. Zero means a single observation;
	// tracers that emit one line per call leave it unset.
	Count int64 `json:"count"`
}

// maxEventSize bounds a single event line.
const maxEventSize = 1024 * 1024

// ReadReport summarizes one pass over an event stream.
type ReadReport struct {
	// Records is the number of non-blank lines seen.
	Records int

	// Events is the number of accepted events.
	Events int

	// Skipped counts malformed lines that were dropped.
	Skipped int

	// Warnings holds one message per skipped line, capped to keep
	// reports readable on large inputs.
	Warnings []string
}

const maxWarnings = 20

func (r *ReadReport) warn(line int, msg string) {
	r.Skipped++
	if len(r.Warnings) < maxWarnings {
		r.Warnings = append(r.Warnings, fmt.Sprintf("line %d: %s", line, msg))
	}
}

// ReadEvents parses a JSON-lines trace event stream. Malformed lines
// and events missing caller or callee are skipped with a warning,
// never fatal; the error return covers only stream-level read
// failures. A nil logger falls back to slog.Default().
func ReadEvents(r io.Reader, logger *slog.Logger) ([]Event, *ReadReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	report := &ReadReport{}
	var events []Event

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxEventSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		report.Records++

		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			report.warn(lineNo, fmt.Sprintf("invalid JSON: %v", err))
			continue
		}
		if ev.Caller == "" || ev.Callee == "" {
			report.warn(lineNo, "event missing caller or callee")
			continue
		}
		if ev.Count < 0 {
			report.warn(lineNo, "event has a negative count")
			continue
		}
		if ev.Count == 0 {
			ev.Count = 1
		}

		events = append(events, ev)
		report.Events++
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading trace events: %w", err)
	}

	if report.Skipped > 0 {
		logger.Warn("skipped malformed trace events",
			"skipped", report.Skipped,
			"accepted", report.Events)
	}
	logger.Debug("trace events loaded",
		"records", report.Records,
		"events", report.Events)
	return events, report, nil
}

// ReadFile reads trace events from a file path.
func ReadFile(path string, logger *slog.Logger) ([]Event, *ReadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening trace events %s: %w", path, err)
	}
	defer f.Close()
	return ReadEvents(f, logger)
}
