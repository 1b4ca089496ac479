package tags

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// maxRecordSize bounds a single JSON record line. Generated symbol
// records are small; anything beyond this is a malformed stream.
const maxRecordSize = 1024 * 1024

// record mirrors one line of the indexer's JSON-lines output.
type record struct {
	Type      string `json:"_type"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	Line      int    `json:"line"`
	End       int    `json:"end"`
	Language  string `json:"language"`
	Kind      string `json:"kind"`
	Scope     string `json:"scope"`
	ScopeKind string `json:"scopeKind"`
}

// ReadReport summarizes one pass over a record stream.
type ReadReport struct {
	// Records is the number of non-blank lines seen.
	Records int

	// Tags is the number of tag records accepted into the store.
	Tags int

	// Skipped counts malformed or incomplete lines that were dropped.
	Skipped int

	// Warnings holds one message per skipped line, capped to keep
	// reports readable on large inputs.
	Warnings []string
}

// maxWarnings caps the individually retained warning messages; the
// Skipped count always reflects the true total.
const maxWarnings = 20

func (r *ReadReport) warn(line int, msg string) {
	r.Skipped++
	if len(r.Warnings) < maxWarnings {
		r.Warnings = append(r.Warnings, fmt.Sprintf("line %d: %s", line, msg))
	}
}

// ReadRecords parses a JSON-lines symbol record stream into a Store.
// Records whose _type is not "tag" are ignored. Malformed lines and
// records missing name/path/line are skipped with a warning, never
// fatal; the error return covers only stream-level read failures.
// A nil logger falls back to slog.Default().
func ReadRecords(r io.Reader, logger *slog.Logger) (*Store, *ReadReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	store := NewStore()
	report := &ReadReport{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxRecordSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		report.Records++

		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			report.warn(lineNo, fmt.Sprintf("invalid JSON: %v", err))
			continue
		}
		if rec.Type != "tag" {
			// Pseudo-tag and metadata records are expected in the
			// stream and silently ignored.
			continue
		}
		if rec.Name == "" || rec.Path == "" || rec.Line <= 0 {
			report.warn(lineNo, "tag record missing name, path, or line")
			continue
		}

		store.Add(Tag{
			Name:      rec.Name,
			FilePath:  rec.Path,
			StartLine: rec.Line,
			EndLine:   rec.End,
			Kind:      Kind(rec.Kind),
			Language:  rec.Language,
			Scope:     rec.Scope,
			ScopeKind: rec.ScopeKind,
		})
		report.Tags++
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading symbol records: %w", err)
	}

	if report.Skipped > 0 {
		logger.Warn("skipped malformed symbol records",
			"skipped", report.Skipped,
			"accepted", report.Tags)
	}
	logger.Debug("symbol records loaded",
		"records", report.Records,
		"tags", report.Tags,
		"files", len(store.byFile))
	return store, report, nil
}

// ReadFile reads symbol records from a file path.
func ReadFile(path string, logger *slog.Logger) (*Store, *ReadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening symbol records %s: %w", path, err)
	}
	defer f.Close()
	return ReadRecords(f, logger)
}
