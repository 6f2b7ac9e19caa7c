package httpapi

import (
	"context"
	"errors"
	"net/http"

	"orphanadmin/internal/application"
	"orphanadmin/internal/auth"
	"orphanadmin/internal/export"
	"orphanadmin/internal/listview"
	"orphanadmin/internal/obs"
	"orphanadmin/internal/query"
	"orphanadmin/internal/statuschange"
)

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// statusFor maps the service error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrValidation),
		errors.Is(err, query.ErrInvalidQuery),
		errors.Is(err, query.ErrInvalidFilterKey):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrNotFound),
		errors.Is(err, listview.ErrViewNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrInvalidTransition),
		errors.Is(err, export.ErrExportInProgress),
		errors.Is(err, statuschange.ErrSubmitting):
		return http.StatusConflict
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, application.ErrFetch):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		obs.Logger().Error().Err(err).
			Str("request_id", RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("unhandled error")
		msg = "internal error"
	}
	writeError(w, r, code, msg)
}
