// internal/app/features/notifications/handler.go
package notifications

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/kneetrack/kneetrack/internal/app/features/shared/patientscope"
	"github.com/kneetrack/kneetrack/internal/app/policy/patientaccess"
	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	notificationstore "github.com/kneetrack/kneetrack/internal/app/store/notifications"
	relationstore "github.com/kneetrack/kneetrack/internal/app/store/relations"
	userstore "github.com/kneetrack/kneetrack/internal/app/store/users"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/paging"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// Handler serves in-app notification endpoints.
type Handler struct {
	Notifications *notificationstore.Store
	Relations     *relationstore.Store
	Users         *userstore.Store
	Audit         *auditlog.Logger
	Log           *zap.Logger
}

// NewHandler creates the notifications handler.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	users := userstore.New(db)
	return &Handler{
		Notifications: notificationstore.New(db),
		Relations:     relationstore.New(db, users),
		Users:         users,
		Audit:         audit,
		Log:           logger,
	}
}

type createRequest struct {
	UserID       string                `json:"user_id"`
	Type         string                `json:"type"`
	Title        string                `json:"title"`
	Message      string                `json:"message"`
	Priority     string                `json:"priority"`
	Channel      string                `json:"channel"`
	Related      *models.RelatedEntity `json:"related"`
	ScheduledFor *time.Time            `json:"scheduled_for"`
}

// ServeCreate handles POST /api/notifications. Doctors notify patients
// they have a relation with; admins notify anyone.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)

	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	targetID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		httpjson.ValidationError(w, r, "Validation failed", map[string]string{"user_id": "user_id is required"})
		return
	}
	if req.Title == "" {
		httpjson.ValidationError(w, r, "Validation failed", map[string]string{"title": "title is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if actor.Role != models.RoleAdmin &&
		!patientscope.Allowed(ctx, w, r, h.Relations, targetID, patientaccess.PermViewActivity) {
		return
	}

	created, err := h.Notifications.Create(ctx, models.Notification{
		UserID:       targetID,
		Type:         req.Type,
		Title:        req.Title,
		Message:      req.Message,
		Priority:     req.Priority,
		Channel:      req.Channel,
		Related:      req.Related,
		ScheduledFor: req.ScheduledFor,
	})
	if err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	h.Audit.Action(ctx, r, actor, audit.ActionNotificationSent, audit.EntityNotifications, &created.ID,
		map[string]any{"user_id": targetID.Hex(), "type": created.Type})
	httpjson.Created(w, r, created)
}

type broadcastRequest struct {
	Role     string `json:"role"` // empty broadcasts to everyone
	Type     string `json:"type"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
}

// ServeBroadcast handles POST /api/notifications/broadcast. Admin-only
// fan-out to every active user, or to one role.
func (h *Handler) ServeBroadcast(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)

	var req broadcastRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	if req.Title == "" {
		httpjson.ValidationError(w, r, "Validation failed", map[string]string{"title": "title is required"})
		return
	}
	if req.Role != "" && !models.IsValidRole(req.Role) {
		httpjson.ValidationError(w, r, "Validation failed", map[string]string{"role": `role must be "patient", "doctor", or "admin"`})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	ids, err := h.Users.ActiveIDs(ctx, req.Role)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}

	sent, err := h.Notifications.CreateMany(ctx, ids, models.Notification{
		Type:     req.Type,
		Title:    req.Title,
		Message:  req.Message,
		Priority: req.Priority,
	})
	if err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	h.Audit.Action(ctx, r, actor, audit.ActionNotificationSent, audit.EntityNotifications, nil,
		map[string]any{"broadcast": true, "role": req.Role, "recipients": sent})
	httpjson.OK(w, r, map[string]any{"sent": sent})
}

type listResponse struct {
	Notifications any         `json:"notifications"`
	Pagination    paging.Meta `json:"pagination"`
}

// ServeList handles GET /api/notifications with optional unread=true.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)
	unreadOnly := r.URL.Query().Get("unread") == "true"

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p := paging.Parse(r)
	notifs, total, err := h.Notifications.ListByUser(ctx, actor.ID, unreadOnly, p.Skip(), p.Limit64())
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, listResponse{Notifications: notifs, Pagination: p.MetaFor(total)})
}

// ServeMarkRead handles POST /api/notifications/{id}/read.
func (h *Handler) ServeMarkRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid notification id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	n, err := h.Notifications.MarkRead(ctx, id, actor.ID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Notification not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, n)
}

// ServeMarkAllRead handles POST /api/notifications/read-all.
func (h *Handler) ServeMarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	n, err := h.Notifications.MarkAllRead(ctx, actor.ID)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, map[string]any{"marked_read": n})
}

// ServeUnreadCount handles GET /api/notifications/unread-count.
func (h *Handler) ServeUnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Notifications.UnreadCount(ctx, actor.ID)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, map[string]any{"unread": n})
}

// ServeDelete handles DELETE /api/notifications/{id}.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid notification id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Notifications.Delete(ctx, id, actor.ID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Notification not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OKMessage(w, r, "Notification deleted", nil)
}
