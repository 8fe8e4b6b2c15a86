package audit

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"tasklane.org/internal/auth"
	"tasklane.org/internal/obs"
)

// LogEvent writes an audit entry enriched with the request id and the
// bound identity. Secrets must not be passed in fields.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	attrs := []slog.Attr{
		slog.String("type", "audit"),
		slog.String("event", event),
	}
	if rid := obs.RequestIDFromContext(ctx); rid != "" {
		attrs = append(attrs, slog.String("request_id", rid))
	}
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		attrs = append(attrs,
			slog.Int64("account_id", identity.AccountID),
			slog.String("username", identity.Username),
		)
	}
	copyFields := make(map[string]any, len(fields))
	for k, v := range fields {
		copyFields[k] = v
	}
	attrs = append(attrs, slog.Any("fields", copyFields))
	obs.Logger().LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
	return nil
}
