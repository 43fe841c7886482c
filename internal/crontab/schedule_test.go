package crontab

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/cronkeeper/internal/apperrors"
)

// Thursday.
var scheduleFrom = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

func TestNextRuns(t *testing.T) {
	tests := []struct {
		name string
		line string
		n    int
		want []time.Time
	}{
		{
			name: "every five minutes at midnight",
			line: "*/5 0 1,15 * 1-5 cmd",
			n:    2,
			want: []time.Time{
				time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC),
				time.Date(2026, 1, 1, 0, 10, 0, 0, time.UTC),
			},
		},
		{
			name: "daily macro",
			line: "@daily root /usr/bin/cleanup",
			n:    2,
			want: []time.Time{
				time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
				time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "day 7 is sunday",
			line: "30 6 * * 7 cmd",
			n:    1,
			want: []time.Time{time.Date(2026, 1, 4, 6, 30, 0, 0, time.UTC)},
		},
		{
			name: "range ending on 7",
			line: "0 12 * * 5-7 cmd",
			n:    3,
			want: []time.Time{
				time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC),
				time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC),
				time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "month names",
			line: "0 0 1 feb,mar * cmd",
			n:    2,
			want: []time.Time{
				time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := NextRuns(tt.line, scheduleFrom, tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, runs)
		})
	}
}

func TestNextRuns_Errors(t *testing.T) {
	tests := []struct {
		line string
		kind apperrors.Kind
	}{
		{line: "60 0 1 1 1", kind: apperrors.KindValidationFailed},
		{line: "@reboot /bin/start", kind: apperrors.KindBadRequest},
		{line: "# 0 0 * * * cmd", kind: apperrors.KindBadRequest},
		{line: "SHELL=/bin/sh", kind: apperrors.KindBadRequest},
	}

	for _, tt := range tests {
		_, err := NextRuns(tt.line, scheduleFrom, 1)
		require.Error(t, err, tt.line)
		assert.True(t, apperrors.Is(err, tt.kind), "line %q: got %v", tt.line, err)
	}
}

func TestDocument_Schedule(t *testing.T) {
	doc := Parse("x", sampleCrontab+"@reboot /bin/start\n# 0 0 * * * disabled\n")

	entries := doc.Schedule(scheduleFrom, 1)

	require.Len(t, entries, 2)
	assert.Equal(t, 4, entries[0].LineNumber)
	assert.Equal(t, "17 * * * *", entries[0].Schedule)
	assert.Equal(t, "root cd / && run-parts --report /etc/cron.hourly", entries[0].Command)
	assert.Equal(t, []time.Time{time.Date(2026, 1, 1, 0, 17, 0, 0, time.UTC)}, entries[0].NextRuns)

	assert.Equal(t, 5, entries[1].LineNumber)
	assert.Equal(t, "*/5 0 1,15 * 1-5", entries[1].Schedule)
}

func TestNormalizeDow(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{field: "*", want: "*"},
		{field: "*/2", want: "*/2"},
		{field: "1-5", want: "1-5"},
		{field: "7", want: "0"},
		{field: "5-7", want: "0,5,6"},
		{field: "mon,7", want: "0,1"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeDow(tt.field), "field %q", tt.field)
	}
}
