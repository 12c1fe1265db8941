// internal/app/features/xrays/upload.go
package xrays

import (
	"context"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/kneetrack/kneetrack/internal/app/features/shared/patientscope"
	"github.com/kneetrack/kneetrack/internal/app/policy/patientaccess"
	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/paging"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// ServeUpload handles POST /api/xrays as multipart form data. The
// "image" part carries the file; "view" and "user_id" are optional
// fields. Patients upload their own images, doctors upload for
// related patients.
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		httpjson.BadRequest(w, r, "upload too large or malformed multipart body")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		httpjson.ValidationError(w, r, "Validation failed", map[string]string{"image": "image file is required"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		httpjson.ValidationError(w, r, "Validation failed", map[string]string{"image": "file must be an image"})
		return
	}

	view := r.FormValue("view")
	if view != "" && !models.IsValidXRayView(view) {
		httpjson.ValidationError(w, r, "Validation failed", map[string]string{"view": `view must be "AP"|"PA"|"Lateral"|"Oblique"`})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	target := actor.ID
	if raw := r.FormValue("user_id"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			httpjson.BadRequest(w, r, "invalid user_id")
			return
		}
		if id != actor.ID {
			if !patientscope.Allowed(ctx, w, r, h.Relations, id, patientaccess.PermViewPredictions) {
				return
			}
			target = id
		}
	}

	info, err := uploadImage(ctx, h.Storage, header.Filename, file, header.Size, contentType)
	if err != nil {
		h.Log.Error("x-ray upload failed", zap.Error(err))
		httpjson.Internal(w, r, err)
		return
	}

	created, err := h.XRays.Create(ctx, models.XRayImage{
		UserID:      target,
		ImageURL:    "/uploads/" + info.Path,
		StoragePath: info.Path,
		FileName:    info.FileName,
		FileSize:    info.Size,
		ContentType: info.ContentType,
		View:        view,
		UploadedBy:  actor.ID,
	})
	if err != nil {
		// Best effort: don't leave an orphan file behind the failed record.
		if derr := h.Storage.Delete(ctx, info.Path); derr != nil {
			h.Log.Warn("failed to remove file after record insert failed",
				zap.String("path", info.Path), zap.Error(derr))
		}
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	h.Audit.Action(ctx, r, actor, audit.ActionXRayUploaded, audit.EntityXRayImages, &created.ID,
		map[string]any{"patient_id": target.Hex(), "file_name": created.FileName})
	httpjson.Created(w, r, created)
}

type listResponse struct {
	Images     any         `json:"images"`
	Pagination paging.Meta `json:"pagination"`
}

// ServeList handles GET /api/xrays with optional user_id.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	target, ok := patientscope.Target(ctx, w, r, h.Relations, patientaccess.PermViewPredictions)
	if !ok {
		return
	}
	p := paging.Parse(r)

	images, total, err := h.XRays.ListByUser(ctx, target, p.Skip(), p.Limit64())
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, listResponse{Images: images, Pagination: p.MetaFor(total)})
}

// ServeView handles GET /api/xrays/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	img := h.loadVisible(ctx, w, r)
	if img == nil {
		return
	}
	httpjson.OK(w, r, img)
}

type statusRequest struct {
	Status string `json:"status"`
}

// ServeSetStatus handles POST /api/xrays/{id}/status. Used by the
// analysis pipeline (doctor or admin credentials) to move an image
// through pending, processing, completed, failed.
func (h *Handler) ServeSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	img := h.loadVisible(ctx, w, r)
	if img == nil {
		return
	}

	var req statusRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	updated, err := h.XRays.SetStatus(ctx, img.ID, req.Status)
	if err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	httpjson.OK(w, r, updated)
}

// ServeDelete handles DELETE /api/xrays/{id}. Owner or admin.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	img := h.loadVisible(ctx, w, r)
	if img == nil {
		return
	}

	actor, _ := sysauth.CurrentUser(r)
	if actor.Role != models.RoleAdmin && actor.ID != img.UserID {
		h.Audit.AccessDenied(ctx, r, actor, audit.EntityXRayImages, &img.ID)
		httpjson.Forbidden(w, r, "Access denied")
		return
	}

	if err := h.XRays.Delete(ctx, img.ID); err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	if err := h.Storage.Delete(ctx, img.StoragePath); err != nil {
		h.Log.Warn("failed to delete stored image",
			zap.String("path", img.StoragePath), zap.Error(err))
	}
	httpjson.OKMessage(w, r, "X-ray image deleted", nil)
}
