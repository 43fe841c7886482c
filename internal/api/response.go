package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/aatumaykin/cronkeeper/internal/apperrors"
	"github.com/aatumaykin/cronkeeper/internal/logger"
)

// statusFor maps an error kind to an HTTP status.
// Policy rejections are client errors: the caller asked for something outside
// the table.
func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindNotPermitted, apperrors.KindValidationFailed, apperrors.KindBadRequest:
		return http.StatusBadRequest
	case apperrors.KindUnauthorized:
		return http.StatusUnauthorized
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		h.logger.Error("failed to encode response", err)
	}
}

// writeError reports err with the status of its kind. Errors without a kind
// are internal and their text is not exposed.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		h.logger.ErrorCtx(r.Context(), "request failed", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	status := statusFor(appErr.Kind)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorCtx(r.Context(), "request failed", err, appErr.LogFields()...)
	} else {
		h.logger.WarnCtx(r.Context(), "request rejected", append(appErr.LogFields(),
			logger.Field{Key: "status", Value: status})...)
	}

	h.writeJSON(w, status, errorResponse{
		Error:      err.Error(),
		Kind:       string(appErr.Kind),
		Suggestion: appErr.Suggestion,
		Details:    appErr.Details,
	})
}

// decode reads a JSON body into v. Oversized bodies and malformed JSON are
// bad requests.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperrors.Newf(apperrors.KindBadRequest, "request body exceeds %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return apperrors.New(apperrors.KindBadRequest, "request body is empty")
		default:
			return apperrors.Wrap(err, apperrors.KindBadRequest, "invalid JSON body")
		}
	}
	if dec.More() {
		return apperrors.New(apperrors.KindBadRequest, "unexpected data after JSON body")
	}
	return nil
}

func badRequest(format string, args ...any) error {
	return apperrors.Newf(apperrors.KindBadRequest, format, args...)
}
