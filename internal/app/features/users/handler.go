// internal/app/features/users/handler.go
package users

import (
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	relationstore "github.com/kneetrack/kneetrack/internal/app/store/relations"
	userstore "github.com/kneetrack/kneetrack/internal/app/store/users"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
)

// Handler serves user profile and account-management endpoints.
type Handler struct {
	Users     *userstore.Store
	Relations *relationstore.Store
	Audit     *auditlog.Logger
	Log       *zap.Logger
}

// NewHandler creates the users handler.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	users := userstore.New(db)
	return &Handler{
		Users:     users,
		Relations: relationstore.New(db, users),
		Audit:     audit,
		Log:       logger,
	}
}
