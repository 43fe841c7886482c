package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_WithValidConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "json to stdout",
			config: Config{Level: "debug", Format: "json", Output: "stdout"},
		},
		{
			name:   "text to stderr",
			config: Config{Level: "info", Format: "text", Output: "stderr"},
		},
		{
			name:   "discard",
			config: Config{Level: "warn", Format: "text", Output: "discard"},
		},
		{
			name:   "file output",
			config: Config{Level: "warn", Format: "json", Output: filepath.Join(t.TempDir(), "logs", "cronkeeper.log")},
		},
		{
			name:    "invalid level",
			config:  Config{Level: "verbose", Format: "json", Output: "stdout"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			config:  Config{Level: "debug", Format: "xml", Output: "stdout"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if log == nil {
					t.Fatal("New() returned nil logger without error")
				}
				if err := log.Close(); err != nil {
					t.Errorf("Close() error = %v", err)
				}
			}
		})
	}
}

func TestLogger_Error(t *testing.T) {
	buf := &bytes.Buffer{}
	log := createTestLogger(buf)

	log.Error("save failed", errors.New("disk full"), Field{Key: "path", Value: "/etc/crontab"})

	output := buf.String()
	if !strings.Contains(output, "save failed") {
		t.Errorf("Expected log to contain message, got: %s", output)
	}
	if !strings.Contains(output, "disk full") {
		t.Errorf("Expected log to contain error text, got: %s", output)
	}
}

func TestLogger_CtxVariants(t *testing.T) {
	buf := &bytes.Buffer{}
	log := createTestLogger(buf)
	ctx := context.Background()

	log.DebugCtx(ctx, "debug ctx")
	log.InfoCtx(ctx, "info ctx")
	log.WarnCtx(ctx, "warn ctx")
	log.ErrorCtx(ctx, "error ctx", errors.New("x"))

	for _, msg := range []string{"debug ctx", "info ctx", "warn ctx", "error ctx"} {
		if !strings.Contains(buf.String(), msg) {
			t.Errorf("Expected %q in output, got: %s", msg, buf.String())
		}
	}
}

func TestLogger_Component(t *testing.T) {
	buf := &bytes.Buffer{}
	log := createTestLogger(buf).Component("executor")

	log.Info("started")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if record["component"] != "executor" {
		t.Errorf("Expected component=executor, got: %v", record["component"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{level: "debug", wantDebug: true, wantInfo: true, wantWarn: true},
		{level: "info", wantInfo: true, wantWarn: true},
		{level: "warn", wantWarn: true},
		{level: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			level, _ := parseLevel(tt.level)
			log := &Logger{slog: slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level}))}

			log.Debug("debug message")
			log.Info("info message")
			log.Warn("warn message")
			log.Error("error message", nil)

			output := buf.String()
			if got := strings.Contains(output, "debug message"); got != tt.wantDebug {
				t.Errorf("debug=%v, want %v", got, tt.wantDebug)
			}
			if got := strings.Contains(output, "info message"); got != tt.wantInfo {
				t.Errorf("info=%v, want %v", got, tt.wantInfo)
			}
			if got := strings.Contains(output, "warn message"); got != tt.wantWarn {
				t.Errorf("warn=%v, want %v", got, tt.wantWarn)
			}
			if !strings.Contains(output, "error message") {
				t.Error("error messages must always pass")
			}
		})
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Info("dropped")
	if err := log.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func createTestLogger(buf *bytes.Buffer) *Logger {
	handler := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &Logger{slog: slog.New(handler)}
}

func TestLogger_RequestIDFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	log := createTestLogger(buf)

	ctx := WithRequestID(context.Background(), "req-42")
	log.InfoCtx(ctx, "handled")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if record["request_id"] != "req-42" {
		t.Errorf("Expected request_id=req-42, got: %v", record["request_id"])
	}
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("Expected empty request id, got: %q", got)
	}
}
