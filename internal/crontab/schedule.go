package crontab

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aatumaykin/cronkeeper/internal/apperrors"
)

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Entry is an active schedule line with its upcoming activations.
type Entry struct {
	LineNumber int         `json:"lineNumber" yaml:"lineNumber"`
	Line       string      `json:"line" yaml:"line"`
	Schedule   string      `json:"schedule" yaml:"schedule"`
	Command    string      `json:"command" yaml:"command"`
	NextRuns   []time.Time `json:"nextRuns" yaml:"nextRuns"`
}

// NextRuns returns the next n activation times of a valid schedule line,
// strictly after from. @reboot lines have no fixed schedule.
func NextRuns(line string, from time.Time, n int) ([]time.Time, error) {
	sched, _, _, err := parseSchedule(line)
	if err != nil {
		return nil, err
	}
	runs := make([]time.Time, 0, n)
	t := from
	for i := 0; i < n; i++ {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		runs = append(runs, t)
	}
	return runs, nil
}

// Schedule lists the active entries of doc with their next n runs.
// Comments, blank lines, environment lines and @reboot entries are skipped.
func (d *Document) Schedule(from time.Time, n int) []Entry {
	var entries []Entry
	for i, line := range d.Lines {
		sched, spec, command, err := parseSchedule(line)
		if err != nil {
			continue
		}
		entry := Entry{LineNumber: i + 1, Line: line, Schedule: spec, Command: command}
		t := from
		for j := 0; j < n; j++ {
			t = sched.Next(t)
			if t.IsZero() {
				break
			}
			entry.NextRuns = append(entry.NextRuns, t)
		}
		entries = append(entries, entry)
	}
	return entries
}

// parseSchedule builds a schedule from an entry or macro line and returns it
// with the schedule text as written and the rest of the line.
func parseSchedule(line string) (cron.Schedule, string, string, error) {
	if d := Validate(0, line); !d.Valid {
		return nil, "", "", apperrors.New(apperrors.KindValidationFailed, d.Error).WithDetail("line", line)
	}

	text := strings.TrimSuffix(line, "\r")
	fields := strings.Fields(text)

	var spec, display, command string
	switch Classify(text) {
	case LineMacro:
		spec = strings.ToLower(fields[0])
		if spec == "@reboot" {
			return nil, "", "", apperrors.New(apperrors.KindBadRequest, "@reboot has no fixed schedule")
		}
		display = fields[0]
		command = strings.Join(fields[1:], " ")
	case LineEntry:
		display = strings.Join(fields[:5], " ")
		timeSpec := append([]string(nil), fields[:5]...)
		timeSpec[4] = normalizeDow(timeSpec[4])
		spec = strings.Join(timeSpec, " ")
		command = strings.Join(fields[5:], " ")
	default:
		return nil, "", "", apperrors.New(apperrors.KindBadRequest, "line is not a schedule entry")
	}

	sched, err := scheduleParser.Parse(spec)
	if err != nil {
		return nil, "", "", apperrors.Wrap(err, apperrors.KindValidationFailed, fmt.Sprintf("cannot evaluate schedule %q", spec))
	}
	return sched, display, command, nil
}

// normalizeDow rewrites a day-of-week field that selects 7 into an explicit
// list, since the schedule parser only knows 0-6. Fields containing "*" never
// reach 7 on the parser's side and are left alone.
func normalizeDow(field string) string {
	if strings.Contains(field, "*") {
		return field
	}
	set, err := timeFields[4].parse(field)
	if err != nil || !set[7] {
		return field
	}
	set[0] = true
	var days []string
	for v := 0; v <= 6; v++ {
		if set[v] {
			days = append(days, strconv.Itoa(v))
		}
	}
	return strings.Join(days, ",")
}
