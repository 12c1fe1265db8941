// internal/app/features/forum/handler.go
package forum

import (
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	forumstore "github.com/kneetrack/kneetrack/internal/app/store/forum"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
)

// Handler serves the community forum endpoints.
type Handler struct {
	Forum *forumstore.Store
	Audit *auditlog.Logger
	Log   *zap.Logger
}

// NewHandler creates the forum handler.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Forum: forumstore.New(db),
		Audit: audit,
		Log:   logger,
	}
}
