package crontab

import (
	"fmt"
	"strings"
)

// Diagnostic is the validation finding for one line.
type Diagnostic struct {
	LineNumber int    `json:"lineNumber" yaml:"lineNumber"`
	Line       string `json:"line" yaml:"line"`
	Valid      bool   `json:"valid" yaml:"valid"`
	Field      string `json:"field,omitempty" yaml:"field,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// macros are the "@" shorthands accepted in place of the five time fields.
var macros = map[string]bool{
	"@reboot":   true,
	"@yearly":   true,
	"@annually": true,
	"@monthly":  true,
	"@weekly":   true,
	"@daily":    true,
	"@midnight": true,
	"@hourly":   true,
}

// LineKind classifies a crontab line.
type LineKind int

const (
	LineBlank LineKind = iota
	LineComment
	LineEnv
	LineMacro
	LineEntry
)

// Classify reports what kind of line text is, without validating it.
func Classify(line string) LineKind {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return LineBlank
	case strings.HasPrefix(trimmed, "#"):
		return LineComment
	case isEnvAssignment(trimmed):
		return LineEnv
	case strings.HasPrefix(trimmed, "@"):
		return LineMacro
	default:
		return LineEntry
	}
}

// Validate checks a single line. lineNumber is 1-based and only copied into
// the diagnostic. Checking stops at the first violation.
func Validate(lineNumber int, line string) Diagnostic {
	d := Diagnostic{LineNumber: lineNumber, Line: line, Valid: true}

	text := strings.TrimSuffix(line, "\r")
	fields := strings.Fields(text)

	switch Classify(text) {
	case LineBlank, LineComment, LineEnv:
		return d
	case LineMacro:
		if !macros[strings.ToLower(fields[0])] {
			return d.fail("schedule", fmt.Sprintf("unknown schedule macro %q", fields[0]))
		}
		if len(fields) < 2 {
			return d.fail("command", fmt.Sprintf("missing command after %s", fields[0]))
		}
		return d
	}

	if len(fields) < len(timeFields) {
		return d.fail("", fmt.Sprintf("expected at least %d fields, got %d", len(timeFields), len(fields)))
	}
	for i, spec := range timeFields {
		if _, err := spec.parse(fields[i]); err != nil {
			return d.fail(spec.name, fmt.Sprintf("%s: %v", spec.name, err))
		}
	}
	return d
}

func (d Diagnostic) fail(field, reason string) Diagnostic {
	d.Valid = false
	d.Field = field
	d.Error = reason
	return d
}

// ValidateDocument validates every line and returns the invalid ones in
// ascending line order. An empty result means the document is valid.
func ValidateDocument(lines []string) []Diagnostic {
	var invalid []Diagnostic
	for i, line := range lines {
		if d := Validate(i+1, line); !d.Valid {
			invalid = append(invalid, d)
		}
	}
	return invalid
}

// isEnvAssignment matches "NAME=value" (spaces around "=" allowed).
func isEnvAssignment(trimmed string) bool {
	name, _, ok := strings.Cut(trimmed, "=")
	if !ok {
		return false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
