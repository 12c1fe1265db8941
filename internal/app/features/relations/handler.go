// internal/app/features/relations/handler.go
package relations

import (
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	relationstore "github.com/kneetrack/kneetrack/internal/app/store/relations"
	userstore "github.com/kneetrack/kneetrack/internal/app/store/users"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
)

// Handler serves doctor-patient relationship endpoints.
type Handler struct {
	Relations *relationstore.Store
	Audit     *auditlog.Logger
	Log       *zap.Logger
}

// NewHandler creates the relations handler.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Relations: relationstore.New(db, userstore.New(db)),
		Audit:     audit,
		Log:       logger,
	}
}
