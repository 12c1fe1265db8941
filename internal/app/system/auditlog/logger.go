// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	"github.com/kneetrack/kneetrack/internal/app/system/ratelimit"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// Config holds audit logging configuration.
type Config struct {
	// Mode controls where entries go.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Mode string
}

// Logger records audit trail entries. Store failures are logged but
// never surfaced to the caller: a broken audit sink must not fail the
// clinical operation it describes.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	if config.Mode == "" {
		config.Mode = "all"
	}
	return &Logger{store: store, zapLog: zapLog, config: config}
}

const maxUserAgentLen = 100

// Redact masks sensitive values in a changes snapshot before it is
// persisted, descending into nested maps so a credential inside a
// before/after diff is masked too. The input map is not modified.
func Redact(changes bson.M) bson.M {
	if changes == nil {
		return nil
	}
	out := make(bson.M, len(changes))
	for k, v := range changes {
		switch k {
		case "password", "passwordHash", "password_hash", "currentPassword", "newPassword":
			out[k] = "***masked***"
			continue
		}
		switch nested := v.(type) {
		case bson.M:
			out[k] = Redact(nested)
		case map[string]any:
			out[k] = Redact(bson.M(nested))
		default:
			out[k] = v
		}
	}
	return out
}

func truncateUserAgent(ua string) string {
	if len(ua) > maxUserAgentLen {
		return ua[:maxUserAgentLen]
	}
	return ua
}

func (l *Logger) logToZap(e audit.Entry) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("action", e.Action),
		zap.String("entity_type", e.EntityType),
		zap.String("status", e.Status),
		zap.String("user_id", e.UserID.Hex()),
		zap.String("ip", e.IPAddress),
	}
	if e.EntityID != nil {
		fields = append(fields, zap.String("entity_id", e.EntityID.Hex()))
	}
	if e.ErrorMessage != "" {
		fields = append(fields, zap.String("error_message", e.ErrorMessage))
	}

	if e.Status == audit.StatusSuccess {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Record writes an entry according to the configured mode. If the
// logger is nil, this is a no-op (allows tests to use a nil logger).
func (l *Logger) Record(ctx context.Context, e audit.Entry) {
	if l == nil || l.config.Mode == "off" {
		return
	}

	e.Changes = Redact(e.Changes)
	e.UserAgent = truncateUserAgent(e.UserAgent)
	if e.Status == "" {
		e.Status = audit.StatusSuccess
	}

	if l.config.Mode == "all" || l.config.Mode == "log" {
		l.logToZap(e)
	}
	if l.config.Mode == "all" || l.config.Mode == "db" {
		if err := l.store.Append(ctx, e); err != nil {
			l.zapLog.Error("failed to store audit entry",
				zap.Error(err),
				zap.String("action", e.Action))
		}
	}
}

func fromRequest(r *http.Request, actor *models.User, action, entityType string) audit.Entry {
	e := audit.Entry{
		Action:     action,
		EntityType: entityType,
		Method:     r.Method,
		Endpoint:   r.URL.Path,
		IPAddress:  ratelimit.ClientIP(r),
		UserAgent:  r.UserAgent(),
		RequestID:  middleware.GetReqID(r.Context()),
	}
	if actor != nil {
		e.UserID = actor.ID
		e.UserEmail = actor.Email
		e.UserRole = actor.Role
	}
	return e
}

// Action records a successful mutation performed by actor.
func (l *Logger) Action(ctx context.Context, r *http.Request, actor *models.User, action, entityType string, entityID *primitive.ObjectID, changes bson.M) {
	e := fromRequest(r, actor, action, entityType)
	e.EntityID = entityID
	e.Changes = changes
	e.StatusCode = http.StatusOK
	l.Record(ctx, e)
}

// Failure records a failed operation.
func (l *Logger) Failure(ctx context.Context, r *http.Request, actor *models.User, action, entityType string, statusCode int, errMsg string) {
	e := fromRequest(r, actor, action, entityType)
	e.Status = audit.StatusFailure
	e.StatusCode = statusCode
	e.ErrorMessage = errMsg
	l.Record(ctx, e)
}

// AccessDenied records a rejected mutation attempt on another patient's
// data. Read-only denials are not audited.
func (l *Logger) AccessDenied(ctx context.Context, r *http.Request, actor *models.User, entityType string, entityID *primitive.ObjectID) {
	e := fromRequest(r, actor, audit.ActionAccessDenied, entityType)
	e.EntityID = entityID
	e.Status = audit.StatusWarning
	e.StatusCode = http.StatusForbidden
	l.Record(ctx, e)
}

// LoginSuccess records a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, user *models.User) {
	e := fromRequest(r, user, audit.ActionUserLogin, audit.EntityUsers)
	e.EntityID = &user.ID
	e.StatusCode = http.StatusOK
	l.Record(ctx, e)
}

// LoginFailed records a failed login attempt. The attempted email is
// kept in metadata; unknown accounts have a zero UserID.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, attemptedEmail, reason string) {
	e := fromRequest(r, nil, audit.ActionUserLogin, audit.EntityUsers)
	e.Status = audit.StatusFailure
	e.StatusCode = http.StatusUnauthorized
	e.ErrorMessage = reason
	e.Metadata = bson.M{"attempted_email": attemptedEmail}
	l.Record(ctx, e)
}

// Logout records a logout.
func (l *Logger) Logout(ctx context.Context, r *http.Request, user *models.User) {
	e := fromRequest(r, user, audit.ActionUserLogout, audit.EntityUsers)
	e.EntityID = &user.ID
	e.StatusCode = http.StatusOK
	l.Record(ctx, e)
}
