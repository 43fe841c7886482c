// Package crontab validates crontab lines and owns reads and atomic writes of
// the crontab file.
package crontab

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/aatumaykin/cronkeeper/internal/apperrors"
)

// Document is a crontab file held in memory as an ordered list of lines.
type Document struct {
	Path  string
	Lines []string
	// TrailingNewline records whether the source ended with "\n", so an
	// unmodified document renders back to the same bytes.
	TrailingNewline bool
}

// Load reads path into a Document. A missing file is a NotFound error.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NotFound("crontab file %s does not exist", path).
				WithDetail("path", path)
		}
		return nil, apperrors.IO(err, "failed to read crontab").WithDetail("path", path)
	}
	return Parse(path, string(data)), nil
}

// Parse splits content on "\n". A "\r" before the newline stays in the line
// text, so CRLF files round-trip unchanged.
func Parse(path, content string) *Document {
	doc := &Document{Path: path}
	if content == "" {
		return doc
	}
	if strings.HasSuffix(content, "\n") {
		doc.TrailingNewline = true
		content = strings.TrimSuffix(content, "\n")
	}
	doc.Lines = strings.Split(content, "\n")
	return doc
}

// String renders the document.
func (d *Document) String() string {
	if len(d.Lines) == 0 {
		if d.TrailingNewline {
			return "\n"
		}
		return ""
	}
	s := strings.Join(d.Lines, "\n")
	if d.TrailingNewline {
		s += "\n"
	}
	return s
}

// Len returns the number of lines.
func (d *Document) Len() int {
	return len(d.Lines)
}

// Line returns the 1-based line.
func (d *Document) Line(lineNumber int) (string, error) {
	if err := d.checkIndex(lineNumber, len(d.Lines)); err != nil {
		return "", err
	}
	return d.Lines[lineNumber-1], nil
}

// Insert places line so that it becomes lineNumber; len+1 appends.
func (d *Document) Insert(lineNumber int, line string) error {
	if err := d.checkIndex(lineNumber, len(d.Lines)+1); err != nil {
		return err
	}
	i := lineNumber - 1
	d.Lines = append(d.Lines, "")
	copy(d.Lines[i+1:], d.Lines[i:])
	d.Lines[i] = line
	return nil
}

// Delete removes a line.
func (d *Document) Delete(lineNumber int) error {
	if err := d.checkIndex(lineNumber, len(d.Lines)); err != nil {
		return err
	}
	i := lineNumber - 1
	d.Lines = append(d.Lines[:i], d.Lines[i+1:]...)
	return nil
}

// Edit replaces a line.
func (d *Document) Edit(lineNumber int, line string) error {
	if err := d.checkIndex(lineNumber, len(d.Lines)); err != nil {
		return err
	}
	d.Lines[lineNumber-1] = line
	return nil
}

// Toggle flips a line between active and disabled and returns the new text.
// Disabling prefixes "# "; enabling strips exactly one "# " or "#" after any
// leading whitespace.
// Blank lines cannot be toggled.
func (d *Document) Toggle(lineNumber int) (string, error) {
	line, err := d.Line(lineNumber)
	if err != nil {
		return "", err
	}
	toggled, err := ToggleLine(line)
	if err != nil {
		return "", err
	}
	d.Lines[lineNumber-1] = toggled
	return toggled, nil
}

// ToggleLine is the text transformation behind Document.Toggle.
func ToggleLine(line string) (string, error) {
	if strings.TrimSpace(line) == "" {
		return "", apperrors.New(apperrors.KindBadRequest, "cannot toggle a blank line")
	}
	rest := strings.TrimLeft(line, " \t")
	indent := line[:len(line)-len(rest)]
	switch {
	case strings.HasPrefix(rest, "# "):
		return indent + rest[2:], nil
	case strings.HasPrefix(rest, "#"):
		return indent + rest[1:], nil
	default:
		return "# " + line, nil
	}
}

// Validate returns the invalid-line diagnostics of the document.
func (d *Document) Validate() []Diagnostic {
	return ValidateDocument(d.Lines)
}

func (d *Document) checkIndex(lineNumber, max int) error {
	if lineNumber < 1 || lineNumber > max {
		return apperrors.NotFound("line %d does not exist (document has %d lines)", lineNumber, len(d.Lines)).
			WithDetail("lineNumber", lineNumber)
	}
	return nil
}
