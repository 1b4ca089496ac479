package diagram

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is an ordered sequence of diagram text lines, fences
// included.
type Document struct {
	// Kind is the diagram kind the document was generated as.
	Kind Kind

	lines []string
}

func newDocument(kind Kind) *Document {
	return &Document{Kind: kind}
}

// Append adds lines to the document.
func (d *Document) Append(lines ...string) {
	d.lines = append(d.lines, lines...)
}

// Appendf adds one formatted line.
func (d *Document) Appendf(format string, args ...any) {
	d.lines = append(d.lines, fmt.Sprintf(format, args...))
}

// Lines returns a copy of the document lines.
func (d *Document) Lines() []string {
	out := make([]string, len(d.lines))
	copy(out, d.lines)
	return out
}

// Len returns the line count.
func (d *Document) Len() int {
	return len(d.lines)
}

// String renders the document with a single trailing newline.
func (d *Document) String() string {
	return strings.Join(d.lines, "\n") + "\n"
}

// WriteFile writes the document atomically: the text goes to a
// temporary file in the target directory which is then renamed over
// the destination, so a failed write never leaves a partial file.
func (d *Document) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".atlas-diagram-*.tmp")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(d.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
