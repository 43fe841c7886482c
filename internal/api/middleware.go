package api

import (
	"fmt"
	"net/http"
	"regexp"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/aatumaykin/cronkeeper/internal/apperrors"
	"github.com/aatumaykin/cronkeeper/internal/auth"
	"github.com/aatumaykin/cronkeeper/internal/logger"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// statusRecorder remembers the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withRequestID reuses a well-formed client ID or generates one.
func (h *Handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// withRecovery turns a handler panic into a 500.
func (h *Handler) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			h.logger.ErrorCtx(r.Context(), "handler panic", fmt.Errorf("panic: %v", rec),
				logger.Field{Key: "path", Value: r.URL.Path},
				logger.Field{Key: "stack", Value: string(debug.Stack())})
			h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}()
		next.ServeHTTP(w, r)
	})
}

// instrument logs and measures one route.
func (h *Handler) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		elapsed := time.Since(start)

		h.metrics.ObserveRequest(route, rec.status, elapsed)
		h.logger.InfoCtx(r.Context(), "request handled",
			logger.Field{Key: "route", Value: route},
			logger.Field{Key: "status", Value: rec.status},
			logger.Field{Key: "duration_ms", Value: elapsed.Milliseconds()},
			logger.Field{Key: "remote_addr", Value: r.RemoteAddr})
	})
}

// requireAuth rejects requests without a valid bearer token.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _ := auth.BearerToken(r.Header.Get("Authorization"))
		principal, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			h.metrics.AuthFailed()
			w.Header().Set("WWW-Authenticate", `Bearer realm="cronkeeper"`)
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
	})
}

// limitBody caps the request body size.
func (h *Handler) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

// Routes returns the full handler tree.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	api := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, h.instrument(pattern, h.requireAuth(h.limitBody(fn))))
	}
	api("GET /api/crontab", h.HandleGetCrontab)
	api("POST /api/crontab", h.HandleSaveCrontab)
	api("POST /api/crontab/validate", h.HandleValidateCrontab)
	api("POST /api/crontab/toggle", h.HandleToggleLine)
	api("GET /api/crontab/schedule", h.HandleSchedule)
	api("GET /api/commands", h.HandleListCommands)
	api("POST /api/command", h.HandleCommand)
	api("POST /api/command/run", h.HandleBatch)

	mux.Handle("GET /healthz", h.instrument("GET /healthz", http.HandlerFunc(h.HandleHealth)))
	if h.opts.MetricsHandler != nil {
		mux.Handle("GET "+h.opts.MetricsPath, h.opts.MetricsHandler)
	}

	// Неизвестные /api/ пути тоже требуют токен, чтобы не раскрывать список маршрутов
	mux.Handle("/api/", h.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, apperrors.Newf(apperrors.KindNotFound, "no route for %s %s", r.Method, r.URL.Path))
	})))

	return h.withRequestID(h.withRecovery(mux))
}
