// internal/app/features/xrays/handler.go
package xrays

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/kneetrack/kneetrack/internal/app/features/shared/patientscope"
	"github.com/kneetrack/kneetrack/internal/app/policy/patientaccess"
	relationstore "github.com/kneetrack/kneetrack/internal/app/store/relations"
	userstore "github.com/kneetrack/kneetrack/internal/app/store/users"
	xraystore "github.com/kneetrack/kneetrack/internal/app/store/xrays"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/limits"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// Handler serves X-ray image endpoints. Binaries go to Storage;
// metadata lives in Mongo.
type Handler struct {
	XRays     *xraystore.Store
	Relations *relationstore.Store
	Storage   storage.Store
	MaxBytes  int64
	Audit     *auditlog.Logger
	Log       *zap.Logger
}

// NewHandler creates the xrays handler. maxBytes caps upload size; zero
// falls back to the package default.
func NewHandler(db *mongo.Database, store storage.Store, maxBytes int64, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	if maxBytes <= 0 {
		maxBytes = limits.MaxXRayUploadSize
	}
	users := userstore.New(db)
	return &Handler{
		XRays:     xraystore.New(db),
		Relations: relationstore.New(db, users),
		Storage:   store,
		MaxBytes:  maxBytes,
		Audit:     audit,
		Log:       logger,
	}
}

// loadVisible fetches an image and checks the caller may see it.
// Writes the response on failure.
func (h *Handler) loadVisible(ctx context.Context, w http.ResponseWriter, r *http.Request) *models.XRayImage {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid image id")
		return nil
	}
	img, err := h.XRays.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "X-ray image not found")
			return nil
		}
		httpjson.Internal(w, r, err)
		return nil
	}
	if !patientscope.Allowed(ctx, w, r, h.Relations, img.UserID, patientaccess.PermViewPredictions) {
		return nil
	}
	return img
}
