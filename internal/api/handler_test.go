package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aatumaykin/cronkeeper/internal/auth"
	"github.com/aatumaykin/cronkeeper/internal/crontab"
	"github.com/aatumaykin/cronkeeper/internal/executor"
	"github.com/aatumaykin/cronkeeper/internal/logger"
	"github.com/aatumaykin/cronkeeper/internal/policy"
)

const testToken = "ops-token-0123456789"

const testCrontab = "SHELL=/bin/sh\n" +
	"# nightly\n" +
	"0 3 * * * root /usr/local/bin/backup\n" +
	"*/15 * * * * root /usr/bin/true\n"

type fakeObserver struct {
	mu         sync.Mutex
	routes     map[string]int
	authFailed int
	rejected   []string
}

func (o *fakeObserver) ObserveRequest(route string, code int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.routes == nil {
		o.routes = map[string]int{}
	}
	o.routes[route] = code
}

func (o *fakeObserver) AuthFailed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.authFailed++
}

func (o *fakeObserver) PolicyRejected(mode string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, mode)
}

type testEnv struct {
	handler  *Handler
	routes   http.Handler
	path     string
	observer *fakeObserver
}

func newTestEnv(t *testing.T, polCfg policy.Config) *testEnv {
	t.Helper()

	path := filepath.Join(t.TempDir(), "crontab")
	require.NoError(t, os.WriteFile(path, []byte(testCrontab), 0o644))
	store, err := crontab.NewStore(crontab.StoreConfig{Path: path}, logger.Nop(), nil)
	require.NoError(t, err)

	engine, err := policy.NewEngine(polCfg)
	require.NoError(t, err)

	hash, err := auth.HashToken(testToken, bcrypt.MinCost)
	require.NoError(t, err)
	authn, err := auth.NewTokenAuthenticator([]auth.TokenEntry{{Name: "ops", Hash: hash}})
	require.NoError(t, err)

	exec := executor.New(executor.Config{Timeout: 5 * time.Second}, logger.Nop(), nil)
	obs := &fakeObserver{}
	h := NewHandler(store, engine, exec, authn, obs, logger.Nop(), Options{
		MaxBodyBytes: 4096,
		MaxBatchSize: 5,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("metrics"))
		}),
	})
	return &testEnv{handler: h, routes: h.Routes(), path: store.Path(), observer: obs}
}

func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	e.routes.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t, policy.Config{})

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic " + testToken},
		{name: "wrong token", header: "Bearer not-the-right-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/crontab", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			env.routes.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
			resp := decodeBody[errorResponse](t, rec)
			assert.Equal(t, "UNAUTHORIZED", resp.Kind)
		})
	}
	assert.Equal(t, 3, env.observer.authFailed)
	assert.Equal(t, http.StatusUnauthorized, env.observer.routes["GET /api/crontab"])

	// Неизвестный маршрут под /api/ тоже закрыт
	req := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	rec := httptest.NewRecorder()
	env.routes.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicEndpoints(t *testing.T) {
	env := newTestEnv(t, policy.Config{})

	for _, target := range []string{"/healthz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		env.routes.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, target)
	}
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t, policy.Config{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "client-req.42")
	rec := httptest.NewRecorder()
	env.routes.ServeHTTP(rec, req)
	assert.Equal(t, "client-req.42", rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "bad id with spaces")
	rec = httptest.NewRecorder()
	env.routes.ServeHTTP(rec, req)
	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestGetCrontab(t *testing.T) {
	env := newTestEnv(t, policy.Config{})

	rec := env.do(t, http.MethodGet, "/api/crontab", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, testCrontab, decodeBody[contentResponse](t, rec).Content)
}

func TestGetCrontab_MissingFile(t *testing.T) {
	env := newTestEnv(t, policy.Config{})
	require.NoError(t, os.Remove(env.path))

	rec := env.do(t, http.MethodGet, "/api/crontab", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeBody[errorResponse](t, rec).Kind)
}

func TestSaveCrontab(t *testing.T) {
	env := newTestEnv(t, policy.Config{})
	content := testCrontab + "30 4 * * 1 root /usr/bin/weekly\n"

	rec := env.do(t, http.MethodPost, "/api/crontab", map[string]string{"content": content})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Crontab updated successfully", decodeBody[messageResponse](t, rec).Message)
	data, err := os.ReadFile(env.path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestSaveCrontab_InvalidLinesLeaveFileUnchanged(t *testing.T) {
	env := newTestEnv(t, policy.Config{})
	content := "60 0 1 1 1 root cmd\n# fine\n* * * root\n0 0 * * * ok\n"

	rec := env.do(t, http.MethodPost, "/api/crontab", map[string]string{"content": content})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[messageResponse](t, rec)
	assert.Equal(t, "Crontab contains invalid lines", resp.Message)
	require.Len(t, resp.Errors, 2)
	assert.Equal(t, 1, resp.Errors[0].LineNumber)
	assert.Equal(t, "minute", resp.Errors[0].Field)
	assert.Equal(t, 3, resp.Errors[1].LineNumber)

	data, err := os.ReadFile(env.path)
	require.NoError(t, err)
	assert.Equal(t, testCrontab, string(data))
}

func TestSaveCrontab_BadRequests(t *testing.T) {
	env := newTestEnv(t, policy.Config{})

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "missing content", body: `{}`, want: "content is required"},
		{name: "malformed json", body: `{"content": `, want: "invalid JSON body"},
		{name: "empty body", body: ``, want: "request body is empty"},
		{name: "trailing data", body: `{"content": ""} {}`, want: "unexpected data"},
		{name: "too large", body: `{"content": "` + strings.Repeat("x", 5000) + `"}`, want: "exceeds 4096 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/crontab", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeBody[errorResponse](t, rec).Error, tt.want)
		})
	}
}

func TestValidateCrontab(t *testing.T) {
	env := newTestEnv(t, policy.Config{})

	rec := env.do(t, http.MethodPost, "/api/crontab/validate", map[string]string{"content": testCrontab})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[validateResponse](t, rec)
	assert.True(t, resp.Valid)
	assert.Empty(t, resp.Errors)

	rec = env.do(t, http.MethodPost, "/api/crontab/validate", map[string]string{"content": "0 25 * * * cmd\n"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeBody[validateResponse](t, rec)
	assert.False(t, resp.Valid)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "hour", resp.Errors[0].Field)
}

func TestToggleLine(t *testing.T) {
	env := newTestEnv(t, policy.Config{})

	rec := env.do(t, http.MethodPost, "/api/crontab/toggle", map[string]int{"lineNumber": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "# 0 3 * * * root /usr/local/bin/backup", decodeBody[toggleResponse](t, rec).Line)

	rec = env.do(t, http.MethodPost, "/api/crontab/toggle", map[string]int{"lineNumber": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	data, err := os.ReadFile(env.path)
	require.NoError(t, err)
	assert.Equal(t, testCrontab, string(data))

	rec = env.do(t, http.MethodPost, "/api/crontab/toggle", map[string]int{"lineNumber": 99})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/crontab/toggle", map[string]int{"lineNumber": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSchedule(t *testing.T) {
	env := newTestEnv(t, policy.Config{})
	env.handler.now = func() time.Time { return time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC) }
	env.routes = env.handler.Routes()

	rec := env.do(t, http.MethodGet, "/api/crontab/schedule?count=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[scheduleResponse](t, rec)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, 3, resp.Entries[0].LineNumber)
	assert.Equal(t, []time.Time{
		time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC),
	}, resp.Entries[0].NextRuns)

	for _, q := range []string{"abc", "0", "101"} {
		rec := env.do(t, http.MethodGet, "/api/crontab/schedule?count="+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestListCommands(t *testing.T) {
	env := newTestEnv(t, policy.Config{AliasOverrides: map[string]string{"list_etc": "ls /etc/cron.d"}})

	rec := env.do(t, http.MethodGet, "/api/commands", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[commandsResponse](t, rec)
	assert.False(t, resp.PrefixMode)
	require.Len(t, resp.Commands, len(policy.Aliases()))
	for _, c := range resp.Commands {
		if c.Key == "list_etc" {
			assert.Equal(t, []string{"ls", "/etc/cron.d"}, c.Argv)
		}
	}
}

func TestCommand(t *testing.T) {
	env := newTestEnv(t, policy.Config{AliasOverrides: map[string]string{"list_etc": "echo hi"}})

	rec := env.do(t, http.MethodPost, "/api/command", map[string]string{"command": "list_etc"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[commandResponse](t, rec)
	assert.Equal(t, "hi\n", resp.Output)
	assert.Equal(t, "ok", resp.Status)

	rec = env.do(t, http.MethodPost, "/api/command", map[string]string{"command": "rm -rf /"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "NOT_PERMITTED", decodeBody[errorResponse](t, rec).Kind)
	assert.Equal(t, []string{"alias"}, env.observer.rejected)

	rec = env.do(t, http.MethodPost, "/api/command", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommand_SpawnFailure(t *testing.T) {
	env := newTestEnv(t, policy.Config{AliasOverrides: map[string]string{"list_etc": "/nonexistent/cronkeeper-bin"}})

	rec := env.do(t, http.MethodPost, "/api/command", map[string]string{"command": "list_etc"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "EXECUTION_ERROR", decodeBody[errorResponse](t, rec).Kind)
}

func TestBatch(t *testing.T) {
	env := newTestEnv(t, policy.Config{
		AliasOverrides:    map[string]string{"list_etc": "echo alias"},
		PrefixModeEnabled: true,
		Prefixes:          []string{"echo", "false"},
	})

	rec := env.do(t, http.MethodPost, "/api/command/run", map[string][]string{
		"commands": {"echo hello", "false", "echo world", "rm -rf /tmp/x", "list_etc"},
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[batchResponse](t, rec)
	assert.True(t, resp.Success)
	require.Len(t, resp.Results, 5)

	assert.Equal(t, "echo hello", resp.Results[0].Command)
	require.NotNil(t, resp.Results[0].Stdout)
	assert.Equal(t, "hello\n", *resp.Results[0].Stdout)
	assert.Empty(t, resp.Results[0].Error)

	assert.Equal(t, "nonzero", resp.Results[1].Status)
	assert.Equal(t, "exit status 1", resp.Results[1].Error)
	require.NotNil(t, resp.Results[1].ExitCode)
	assert.Equal(t, 1, *resp.Results[1].ExitCode)

	require.NotNil(t, resp.Results[2].Stdout)
	assert.Equal(t, "world\n", *resp.Results[2].Stdout)

	assert.Equal(t, "denied", resp.Results[3].Status)
	assert.Nil(t, resp.Results[3].Stdout)
	assert.Contains(t, resp.Results[3].Error, "command not in whitelist")

	require.NotNil(t, resp.Results[4].Stdout)
	assert.Equal(t, "alias\n", *resp.Results[4].Stdout)

	assert.Equal(t, []string{"prefix"}, env.observer.rejected)
}

func TestBatch_PrefixModeOffRejectsRaw(t *testing.T) {
	env := newTestEnv(t, policy.Config{})

	rec := env.do(t, http.MethodPost, "/api/command/run", map[string][]string{"commands": {"echo hello"}})

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[batchResponse](t, rec)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "denied", resp.Results[0].Status)
	assert.Contains(t, resp.Results[0].Error, "raw commands are disabled")
}

func TestBatch_BadRequests(t *testing.T) {
	env := newTestEnv(t, policy.Config{})

	rec := env.do(t, http.MethodPost, "/api/command/run", `{"commands": "echo hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/command/run", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[errorResponse](t, rec).Error, "commands must be an array")

	rec = env.do(t, http.MethodPost, "/api/command/run", map[string][]string{
		"commands": {"a", "b", "c", "d", "e", "f"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[errorResponse](t, rec).Error, "limit is 5")

	rec = env.do(t, http.MethodPost, "/api/command/run", map[string][]string{"commands": {}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[batchResponse](t, rec).Results)
}

type panickingStore struct{ CrontabStore }

func (panickingStore) Load() (*crontab.Document, error) {
	panic("boom")
}

func TestPanicRecovery(t *testing.T) {
	env := newTestEnv(t, policy.Config{})
	env.handler.store = panickingStore{}
	env.routes = env.handler.Routes()

	rec := env.do(t, http.MethodGet, "/api/crontab", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decodeBody[errorResponse](t, rec).Error)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusGatewayTimeout, statusFor("TIMEOUT"))
	assert.Equal(t, http.StatusInternalServerError, statusFor("IO_ERROR"))
	assert.Equal(t, http.StatusInternalServerError, statusFor(""))
}
