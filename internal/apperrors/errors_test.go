package apperrors

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_MessageIncludesCause(t *testing.T) {
	err := IO(os.ErrPermission, "failed to write crontab")
	assert.Equal(t, "failed to write crontab: permission denied", err.Error())
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: errors.New("boom"), want: ""},
		{name: "direct", err: NotPermitted("not permitted"), want: KindNotPermitted},
		{name: "wrapped", err: fmt.Errorf("outer: %w", NotFound("alias %q", "x")), want: KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("save: %w", New(KindValidationFailed, "crontab contains invalid lines"))
	assert.True(t, Is(err, KindValidationFailed))
	assert.False(t, Is(err, KindIO))
	assert.False(t, Is(nil, KindIO))
}

func TestError_DetailsAndSuggestion(t *testing.T) {
	err := New(KindTimeout, "command timed out").
		WithDetail("timeout_ms", 100).
		WithSuggestion("raise executor.timeout_seconds")

	require.NotNil(t, err.Details)
	assert.Equal(t, 100, err.Details["timeout_ms"])

	fields := err.LogFields()
	require.Len(t, fields, 3)
	assert.Equal(t, "error_kind", fields[0].Key)
	assert.Equal(t, "TIMEOUT", fields[0].Value)
	assert.Equal(t, "error_suggestion", fields[2].Key)
}
