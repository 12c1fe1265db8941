// internal/app/features/auth/handler.go
package auth

import (
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	userstore "github.com/kneetrack/kneetrack/internal/app/store/users"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/ratelimit"
)

// bcryptCost is deliberately above the library default; registration and
// login are rare enough that the extra hashing time is acceptable.
const bcryptCost = 12

// Handler serves registration, login, and account-credential endpoints.
type Handler struct {
	Users        *userstore.Store
	Tokens       *sysauth.Tokens
	Audit        *auditlog.Logger
	LoginLimiter *ratelimit.LoginLimiter
	AdminSecret  string
	Log          *zap.Logger
}

// NewHandler creates the auth handler.
func NewHandler(db *mongo.Database, tokens *sysauth.Tokens, audit *auditlog.Logger, adminSecret string, logger *zap.Logger) *Handler {
	return &Handler{
		Users:        userstore.New(db),
		Tokens:       tokens,
		Audit:        audit,
		LoginLimiter: ratelimit.NewLoginLimiter(),
		AdminSecret:  adminSecret,
		Log:          logger,
	}
}
