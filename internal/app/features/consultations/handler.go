// internal/app/features/consultations/handler.go
package consultations

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	consultationstore "github.com/kneetrack/kneetrack/internal/app/store/consultations"
	relationstore "github.com/kneetrack/kneetrack/internal/app/store/relations"
	userstore "github.com/kneetrack/kneetrack/internal/app/store/users"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// Handler serves consultation scheduling endpoints.
type Handler struct {
	Consultations *consultationstore.Store
	Users         *userstore.Store
	Relations     *relationstore.Store
	Audit         *auditlog.Logger
	Log           *zap.Logger
}

// NewHandler creates the consultations handler.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	users := userstore.New(db)
	return &Handler{
		Consultations: consultationstore.New(db),
		Users:         users,
		Relations:     relationstore.New(db, users),
		Audit:         audit,
		Log:           logger,
	}
}

// loadParty fetches a consultation and ensures the caller is the
// doctor, the patient, or an admin. Writes the response on failure.
func (h *Handler) loadParty(ctx context.Context, w http.ResponseWriter, r *http.Request) *models.Consultation {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid consultation id")
		return nil
	}
	con, err := h.Consultations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Consultation not found")
			return nil
		}
		httpjson.Internal(w, r, err)
		return nil
	}
	actor, _ := sysauth.CurrentUser(r)
	if actor.Role != models.RoleAdmin && actor.ID != con.DoctorID && actor.ID != con.PatientID {
		httpjson.Forbidden(w, r, "Access denied")
		return nil
	}
	return con
}

// mutationErr maps store state errors onto HTTP responses. Reports
// whether it handled the error.
func (h *Handler) mutationErr(ctx context.Context, w http.ResponseWriter, r *http.Request, conID primitive.ObjectID, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, consultationstore.ErrNotAssignedDoctor):
		actor, _ := sysauth.CurrentUser(r)
		h.Audit.AccessDenied(ctx, r, actor, audit.EntityConsultations, &conID)
		httpjson.Forbidden(w, r, "Access denied")
	case errors.Is(err, consultationstore.ErrNotReschedulable):
		httpjson.Error(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, mongo.ErrNoDocuments):
		httpjson.NotFound(w, r, "Consultation not found")
	default:
		httpjson.Internal(w, r, err)
	}
	return true
}
