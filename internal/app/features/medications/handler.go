// internal/app/features/medications/handler.go
package medications

import (
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	medicationstore "github.com/kneetrack/kneetrack/internal/app/store/medications"
	relationstore "github.com/kneetrack/kneetrack/internal/app/store/relations"
	userstore "github.com/kneetrack/kneetrack/internal/app/store/users"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
)

// Handler serves medication reminder endpoints.
type Handler struct {
	Medications *medicationstore.Store
	Users       *userstore.Store
	Relations   *relationstore.Store
	Audit       *auditlog.Logger
	Log         *zap.Logger
}

// NewHandler creates the medications handler.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	users := userstore.New(db)
	return &Handler{
		Medications: medicationstore.New(db),
		Users:       users,
		Relations:   relationstore.New(db, users),
		Audit:       audit,
		Log:         logger,
	}
}
