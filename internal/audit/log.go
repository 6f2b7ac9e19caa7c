// Package audit records who did what to which application.
package audit

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"orphanadmin/internal/auth"
	"orphanadmin/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// Event names.
const (
	ApplicationCreated       = "application.created"
	ApplicationUpdated       = "application.updated"
	ApplicationDeleted       = "application.deleted"
	ApplicationStatusChanged = "application.status_changed"
	ApplicationExported      = "application.exported"
	TokenIssued              = "auth.token_issued"
)

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit log entry enriched with request and user context.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	evt := obs.Named("audit").Info().Str("type", "audit").Str("event", event)
	if rid := RequestIDFromContext(ctx); rid != "" {
		evt = evt.Str("request_id", rid)
	}
	if userID, ok := auth.UserIDFromContext(ctx); ok {
		evt = evt.Str("user_id", userID)
	}
	if roles := auth.RolesFromContext(ctx); len(roles) > 0 {
		evt = evt.Strs("roles", roles.Strings())
	}
	dict := zerolog.Dict()
	if len(fields) > 0 {
		dict = dict.Fields(fields)
	}
	evt.Dict("fields", dict).Msg(event)
	return nil
}
