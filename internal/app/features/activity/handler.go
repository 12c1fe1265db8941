// internal/app/features/activity/handler.go
package activity

import (
	"context"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/kneetrack/kneetrack/internal/app/features/shared/patientscope"
	"github.com/kneetrack/kneetrack/internal/app/policy/patientaccess"
	activitystore "github.com/kneetrack/kneetrack/internal/app/store/activity"
	relationstore "github.com/kneetrack/kneetrack/internal/app/store/relations"
	userstore "github.com/kneetrack/kneetrack/internal/app/store/users"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
)

// Handler serves daily activity log endpoints.
type Handler struct {
	Activity  *activitystore.Store
	Relations *relationstore.Store
	Audit     *auditlog.Logger
	Log       *zap.Logger
}

// NewHandler creates the activity handler.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Activity:  activitystore.New(db),
		Relations: relationstore.New(db, userstore.New(db)),
		Audit:     audit,
		Log:       logger,
	}
}

func (h *Handler) targetPatient(ctx context.Context, w http.ResponseWriter, r *http.Request, perm patientaccess.Permission) (primitive.ObjectID, bool) {
	return patientscope.Target(ctx, w, r, h.Relations, perm)
}

func dateRange(r *http.Request) (from, to *time.Time, err error) {
	return patientscope.DateRange(r)
}
