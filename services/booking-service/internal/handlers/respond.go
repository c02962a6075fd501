package handlers

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
)

func caller(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

// writeErr renders err in the error envelope. Internal errors are logged and replaced by an
// opaque message.
func writeErr(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	e := apperr.As(err)
	detail := httpx.ErrorDetail{
		Code:       string(e.Kind),
		Message:    e.Message,
		EntityID:   e.EntityID,
		ConflictID: e.ConflictID,
		RequestID:  httpx.RequestIDFromContext(r.Context()),
	}
	switch e.Kind {
	case apperr.KindInternal:
		logger.Error("request failed", "err", err, "method", r.Method, "path", r.URL.Path,
			"request_id", detail.RequestID, "trace_id", traceID(r))
		detail.Message = "internal error"
	case apperr.KindTransient:
		logger.Warn("transient failure", "err", err, "path", r.URL.Path, "request_id", detail.RequestID)
		detail.Message = "temporarily unavailable, retry the request"
	}
	httpx.WriteError(w, apperr.HTTPStatus(e.Kind), detail)
}

func traceID(r *http.Request) string {
	if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorDetail{
		Code:      string(apperr.KindValidation),
		Message:   msg,
		RequestID: httpx.RequestIDFromContext(r.Context()),
	})
}

// decode reads the JSON body into dst, answering 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		badRequest(w, r, err.Error())
		return false
	}
	return true
}
