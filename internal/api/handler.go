// Package api is the HTTP gateway in front of the crontab store and the
// command executor. Handlers only translate JSON to calls on the core
// packages and map error kinds to status codes.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/aatumaykin/cronkeeper/internal/apperrors"
	"github.com/aatumaykin/cronkeeper/internal/auth"
	"github.com/aatumaykin/cronkeeper/internal/crontab"
	"github.com/aatumaykin/cronkeeper/internal/executor"
	"github.com/aatumaykin/cronkeeper/internal/logger"
	"github.com/aatumaykin/cronkeeper/internal/policy"
)

const (
	DefaultScheduleCount = 5
	MaxScheduleCount     = 100
	DefaultMaxBatchSize  = 32
	DefaultMaxBodyBytes  = 1 << 20
)

// CrontabStore is the persisted crontab.
type CrontabStore interface {
	Path() string
	Load() (*crontab.Document, error)
	Save(ctx context.Context, doc *crontab.Document) ([]crontab.Diagnostic, error)
	Toggle(ctx context.Context, lineNumber int) (string, error)
}

// Authorizer decides which commands may run.
type Authorizer interface {
	Authorize(key string) (policy.Decision, error)
	AuthorizeRaw(input string) (policy.Decision, error)
	PrefixModeEnabled() bool
	Argv(a policy.Alias) []string
}

// CommandRunner runs approved commands.
type CommandRunner interface {
	Execute(ctx context.Context, c executor.Command, timeout time.Duration) executor.Result
	ExecuteBatch(ctx context.Context, jobs []executor.Job, opts executor.BatchOptions) []executor.Result
}

// Observer receives request metrics.
type Observer interface {
	ObserveRequest(route string, code int, d time.Duration)
	AuthFailed()
	PolicyRejected(mode string)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, int, time.Duration) {}
func (nopObserver) AuthFailed()                               {}
func (nopObserver) PolicyRejected(string)                     {}

// Options tunes the handler.
type Options struct {
	MaxBodyBytes     int64
	ScheduleCount    int
	MaxBatchSize     int
	BatchConcurrency int
	// CommandTimeout of zero means the executor default.
	CommandTimeout time.Duration
	// MetricsHandler is served unauthenticated at MetricsPath when set.
	MetricsHandler http.Handler
	MetricsPath    string
}

// Handler serves the gateway endpoints.
type Handler struct {
	store   CrontabStore
	policy  Authorizer
	exec    CommandRunner
	auth    auth.Authenticator
	metrics Observer
	logger  *logger.Logger
	opts    Options
	now     func() time.Time
}

// NewHandler wires the core components. metrics may be nil.
func NewHandler(store CrontabStore, pol Authorizer, exec CommandRunner, authn auth.Authenticator,
	metrics Observer, log *logger.Logger, opts Options) *Handler {
	if metrics == nil {
		metrics = nopObserver{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.ScheduleCount <= 0 {
		opts.ScheduleCount = DefaultScheduleCount
	}
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = DefaultMaxBatchSize
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	return &Handler{
		store:   store,
		policy:  pol,
		exec:    exec,
		auth:    authn,
		metrics: metrics,
		logger:  log.Component("api"),
		opts:    opts,
		now:     time.Now,
	}
}

// HandleHealth reports liveness. It does not touch the crontab.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleGetCrontab returns the whole crontab as one string.
func (h *Handler) HandleGetCrontab(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Load()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, contentResponse{Content: doc.String()})
}

// HandleSaveCrontab validates and atomically replaces the crontab.
func (h *Handler) HandleSaveCrontab(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Content == nil {
		h.writeError(w, r, badRequest("content is required"))
		return
	}

	doc := crontab.Parse(h.store.Path(), *req.Content)
	diags, err := h.store.Save(r.Context(), doc)
	if apperrors.Is(err, apperrors.KindValidationFailed) {
		h.logger.WarnCtx(r.Context(), "crontab rejected",
			logger.Field{Key: "invalid_lines", Value: len(diags)},
			principalField(r.Context()))
		h.writeJSON(w, http.StatusBadRequest, messageResponse{
			Message: "Crontab contains invalid lines",
			Errors:  lineErrors(diags),
		})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.InfoCtx(r.Context(), "crontab updated",
		logger.Field{Key: "lines", Value: doc.Len()},
		principalField(r.Context()))
	h.writeJSON(w, http.StatusOK, messageResponse{Message: "Crontab updated successfully"})
}

// HandleValidateCrontab is a dry run of save.
func (h *Handler) HandleValidateCrontab(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Content == nil {
		h.writeError(w, r, badRequest("content is required"))
		return
	}

	diags := crontab.Parse(h.store.Path(), *req.Content).Validate()
	h.writeJSON(w, http.StatusOK, validateResponse{Valid: len(diags) == 0, Errors: lineErrors(diags)})
}

// HandleToggleLine comments or uncomments one line.
func (h *Handler) HandleToggleLine(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.LineNumber < 1 {
		h.writeError(w, r, badRequest("lineNumber must be a positive integer"))
		return
	}

	line, err := h.store.Toggle(r.Context(), req.LineNumber)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.InfoCtx(r.Context(), "crontab line toggled",
		logger.Field{Key: "line_number", Value: req.LineNumber},
		principalField(r.Context()))
	h.writeJSON(w, http.StatusOK, toggleResponse{
		Message: "Line " + strconv.Itoa(req.LineNumber) + " toggled",
		Line:    line,
	})
}

// HandleSchedule previews the next runs of every active entry.
func (h *Handler) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	count := h.opts.ScheduleCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxScheduleCount {
			h.writeError(w, r, badRequest("count must be an integer between 1 and %d", MaxScheduleCount))
			return
		}
		count = n
	}

	doc, err := h.store.Load()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	from := h.now()
	entries := doc.Schedule(from, count)
	if entries == nil {
		entries = []crontab.Entry{}
	}
	h.writeJSON(w, http.StatusOK, scheduleResponse{From: from, Entries: entries})
}

// HandleListCommands lists the alias table.
func (h *Handler) HandleListCommands(w http.ResponseWriter, r *http.Request) {
	resp := commandsResponse{PrefixMode: h.policy.PrefixModeEnabled()}
	for _, a := range policy.Aliases() {
		resp.Commands = append(resp.Commands, aliasInfo{
			Key:         a.Key(),
			Description: a.Description(),
			Argv:        h.policy.Argv(a),
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleCommand runs one alias.
func (h *Handler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Command == "" {
		h.writeError(w, r, badRequest("command is required"))
		return
	}

	decision, err := h.policy.Authorize(req.Command)
	if err != nil {
		h.metrics.PolicyRejected(string(policy.ModeAlias))
		h.writeError(w, r, err)
		return
	}

	res := h.exec.Execute(r.Context(), decision.Command, h.opts.CommandTimeout)
	if res.Err != nil {
		h.writeError(w, r, res.Err)
		return
	}

	h.writeJSON(w, http.StatusOK, commandResponse{
		Output:     res.Output(),
		ExitCode:   res.ExitCode,
		Status:     string(res.Status()),
		Truncated:  res.StdoutTruncated || res.StderrTruncated,
		DurationMS: res.Duration.Milliseconds(),
	})
}

// HandleBatch runs a list of commands and reports each one. Items naming an
// alias go through the alias table; anything else needs prefix mode.
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Commands == nil {
		h.writeError(w, r, badRequest("commands must be an array"))
		return
	}
	if len(req.Commands) > h.opts.MaxBatchSize {
		h.writeError(w, r, badRequest("batch has %d commands, limit is %d", len(req.Commands), h.opts.MaxBatchSize))
		return
	}

	jobs := make([]executor.Job, len(req.Commands))
	for i, item := range req.Commands {
		jobs[i] = h.authorizeItem(item)
	}

	results := h.exec.ExecuteBatch(r.Context(), jobs, executor.BatchOptions{
		Concurrency: h.opts.BatchConcurrency,
		Timeout:     h.opts.CommandTimeout,
	})

	resp := batchResponse{Success: true, Results: make([]batchResult, len(results))}
	for i, res := range results {
		resp.Results[i] = toBatchResult(req.Commands[i], res)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) authorizeItem(item string) executor.Job {
	mode := policy.ModeAlias
	var (
		decision policy.Decision
		err      error
	)
	if _, ok := policy.ParseAlias(item); ok {
		decision, err = h.policy.Authorize(item)
	} else {
		mode = policy.ModePrefix
		decision, err = h.policy.AuthorizeRaw(item)
	}
	if err != nil {
		h.metrics.PolicyRejected(string(mode))
		return executor.Job{Command: executor.ArgvCommand(item), Err: err}
	}
	return executor.Job{Command: decision.Command}
}

func toBatchResult(item string, res executor.Result) batchResult {
	status := res.Status()
	out := batchResult{Command: item, Status: string(status)}

	switch status {
	case executor.StatusDenied, executor.StatusSkipped, executor.StatusError:
		out.Error = res.Err.Error()
		return out
	case executor.StatusNonZero:
		out.Error = "exit status " + strconv.Itoa(res.ExitCode)
	case executor.StatusTimeout:
		out.Error = res.Err.Error()
	}

	stdout, stderr, code := res.Stdout, res.Stderr, res.ExitCode
	out.Stdout, out.Stderr, out.ExitCode = &stdout, &stderr, &code
	return out
}

func lineErrors(diags []crontab.Diagnostic) []lineError {
	out := make([]lineError, 0, len(diags))
	for _, d := range diags {
		out = append(out, lineError{LineNumber: d.LineNumber, Line: d.Line, Field: d.Field, Error: d.Error})
	}
	return out
}

func principalField(ctx context.Context) logger.Field {
	p, _ := auth.PrincipalFrom(ctx)
	return logger.Field{Key: "principal", Value: p.Name}
}
