// internal/app/features/messages/handler.go
package messages

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	messagestore "github.com/kneetrack/kneetrack/internal/app/store/messages"
	userstore "github.com/kneetrack/kneetrack/internal/app/store/users"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/paging"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// Handler serves direct messaging endpoints.
type Handler struct {
	Messages *messagestore.Store
	Users    *userstore.Store
	Audit    *auditlog.Logger
	Log      *zap.Logger
}

// NewHandler creates the messages handler.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Messages: messagestore.New(db),
		Users:    userstore.New(db),
		Audit:    audit,
		Log:      logger,
	}
}

type sendRequest struct {
	ReceiverID string             `json:"receiver_id"`
	Type       string             `json:"type"`
	Content    string             `json:"content"`
	Attachment *models.Attachment `json:"attachment"`
}

// ServeSend handles POST /api/messages.
func (h *Handler) ServeSend(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)

	var req sendRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	receiverID, err := primitive.ObjectIDFromHex(req.ReceiverID)
	if err != nil {
		httpjson.ValidationError(w, r, "Validation failed", map[string]string{"receiver_id": "receiver_id is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	receiver, err := h.Users.GetByID(ctx, receiverID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Receiver not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}
	if !receiver.Active {
		httpjson.NotFound(w, r, "Receiver not found")
		return
	}

	sent, err := h.Messages.Send(ctx, models.Message{
		SenderID:   actor.ID,
		ReceiverID: receiverID,
		Type:       req.Type,
		Content:    req.Content,
		Attachment: req.Attachment,
	})
	if err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	h.Audit.Action(ctx, r, actor, audit.ActionMessageSent, audit.EntityMessages, &sent.ID,
		map[string]any{"receiver_id": receiverID.Hex()})
	httpjson.Created(w, r, sent)
}

// ServeConversations handles GET /api/messages. One summary per
// conversation partner, most recent first.
func (h *Handler) ServeConversations(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	convs, err := h.Messages.Conversations(ctx, actor.ID)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, map[string]any{"conversations": convs})
}

type conversationResponse struct {
	Messages   any         `json:"messages"`
	Pagination paging.Meta `json:"pagination"`
}

// ServeConversation handles GET /api/messages/with/{userId}.
func (h *Handler) ServeConversation(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)
	other, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid user id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p := paging.Parse(r)
	msgs, total, err := h.Messages.Conversation(ctx, actor.ID, other, p.Skip(), p.Limit64())
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, conversationResponse{Messages: msgs, Pagination: p.MetaFor(total)})
}

// ServeMarkRead handles POST /api/messages/with/{userId}/read.
func (h *Handler) ServeMarkRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)
	other, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid user id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	n, err := h.Messages.MarkConversationRead(ctx, actor.ID, other)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, map[string]any{"marked_read": n})
}

// ServeUnreadCount handles GET /api/messages/unread-count.
func (h *Handler) ServeUnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Messages.UnreadCount(ctx, actor.ID)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, map[string]any{"unread": n})
}

// ServeDelete handles DELETE /api/messages/{id}. Senders may delete
// their own messages only.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid message id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Messages.Delete(ctx, id, actor.ID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Message not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OKMessage(w, r, "Message deleted", nil)
}
