// Package audit records security-relevant events: identity lifecycle,
// access denials and organisational mutations.
package audit

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"orgadmin.io/internal/auth"
)

type ctxKey struct{}

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestIDFromContext returns the id set by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}

// Logger writes audit entries through zap under the "audit" name.
type Logger struct {
	z *zap.Logger
}

func New(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{z: logger.Named("audit")}
}

// Event writes one audit entry enriched with request and principal context.
func (l *Logger) Event(ctx context.Context, event string, fields ...zap.Field) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	base := []zap.Field{
		zap.String("type", "audit"),
		zap.String("event", event),
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		base = append(base, zap.String("request_id", rid))
	}
	if p := auth.PrincipalFromContext(ctx); p != nil && p.Authenticated {
		base = append(base,
			zap.String("actor_id", p.Identity.ID),
			zap.String("actor", p.Identity.Username),
			zap.String("actor_role", p.Identity.RoleCode()))
	}
	l.z.Info(event, append(base, fields...)...)
	return nil
}
