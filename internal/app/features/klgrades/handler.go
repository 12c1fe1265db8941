// internal/app/features/klgrades/handler.go
package klgrades

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/kneetrack/kneetrack/internal/app/policy/fieldgrant"
	klgradestore "github.com/kneetrack/kneetrack/internal/app/store/klgrades"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
)

// Handler serves the Kellgren-Lawrence reference scale.
type Handler struct {
	Grades *klgradestore.Store
	Log    *zap.Logger
}

// NewHandler creates the klgrades handler.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Grades: klgradestore.New(db),
		Log:    logger,
	}
}

// ServeList handles GET /api/kl-grades.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	grades, err := h.Grades.List(ctx)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, map[string]any{"grades": grades})
}

func gradeParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	grade, err := strconv.Atoi(chi.URLParam(r, "grade"))
	if err != nil || grade < 0 || grade > 4 {
		httpjson.BadRequest(w, r, "grade must be an integer between 0 and 4")
		return 0, false
	}
	return grade, true
}

// ServeView handles GET /api/kl-grades/{grade}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	grade, ok := gradeParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, err := h.Grades.GetByGrade(ctx, grade)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Grade not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, g)
}

// ServeUpdate handles PATCH /api/kl-grades/{grade}. Admin only;
// adjusts descriptions and default recommendations.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	grade, ok := gradeParam(w, r)
	if !ok {
		return
	}

	var raw map[string]any
	if err := httpjson.Decode(r, &raw); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	actor, _ := sysauth.CurrentUser(r)
	granted := fieldgrant.Filter(actor.Role, fieldgrant.EntityKLGrades, raw)
	if len(granted) == 0 {
		httpjson.BadRequest(w, r, "no updatable fields in request")
		return
	}
	patch := bson.M{}
	for k, v := range granted {
		patch[k] = v
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	updated, err := h.Grades.Update(ctx, grade, patch)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Grade not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, updated)
}
