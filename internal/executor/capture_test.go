package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCappedBuffer(t *testing.T) {
	tests := []struct {
		name          string
		max           int64
		writes        []string
		want          string
		wantTruncated bool
	}{
		{name: "under cap", max: 10, writes: []string{"abc", "def"}, want: "abcdef"},
		{name: "exactly at cap", max: 6, writes: []string{"abc", "def"}, want: "abcdef"},
		{name: "split write", max: 4, writes: []string{"abc", "def"}, want: "abcd", wantTruncated: true},
		{name: "writes after cap", max: 3, writes: []string{"abc", "d"}, want: "abc", wantTruncated: true},
		{name: "empty write at cap", max: 3, writes: []string{"abc", ""}, want: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newCappedBuffer(tt.max)
			for _, s := range tt.writes {
				n, err := w.Write([]byte(s))
				assert.NoError(t, err)
				assert.Equal(t, len(s), n)
			}
			assert.Equal(t, tt.want, w.String())
			assert.Equal(t, tt.wantTruncated, w.Truncated())
		})
	}
}
