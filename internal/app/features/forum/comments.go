// internal/app/features/forum/comments.go
package forum

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/paging"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

type createCommentRequest struct {
	Body            string `json:"body"`
	ParentCommentID string `json:"parent_comment_id"`
}

// ServeCreateComment handles POST /api/forum/posts/{id}/comments.
func (h *Handler) ServeCreateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}
	actor, _ := sysauth.CurrentUser(r)

	var req createCommentRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	if req.Body == "" {
		httpjson.ValidationError(w, r, "Validation failed", map[string]string{"body": "body is required"})
		return
	}

	c := models.ForumComment{
		PostID: id,
		UserID: actor.ID,
		Body:   req.Body,
	}
	if req.ParentCommentID != "" {
		parentID, err := primitive.ObjectIDFromHex(req.ParentCommentID)
		if err != nil {
			httpjson.BadRequest(w, r, "invalid parent_comment_id")
			return
		}
		c.ParentCommentID = &parentID
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Forum.CreateComment(ctx, c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Post not found")
			return
		}
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	h.Audit.Action(ctx, r, actor, audit.ActionForumCommentCreated, audit.EntityForumComments, &created.ID,
		map[string]any{"post_id": id.Hex()})
	httpjson.Created(w, r, created)
}

type commentListResponse struct {
	Comments   any         `json:"comments"`
	Pagination paging.Meta `json:"pagination"`
}

// ServeListComments handles GET /api/forum/posts/{id}/comments,
// oldest first.
func (h *Handler) ServeListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p := paging.Parse(r)
	comments, total, err := h.Forum.ListComments(ctx, id, p.Skip(), p.Limit64())
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, commentListResponse{Comments: comments, Pagination: p.MetaFor(total)})
}

func commentID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "commentId"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid comment id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// ServeDeleteComment handles DELETE /api/forum/comments/{commentId}.
func (h *Handler) ServeDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := commentID(w, r)
	if !ok {
		return
	}
	actor, _ := sysauth.CurrentUser(r)

	authorID := actor.ID
	if actor.Role == models.RoleAdmin {
		authorID = primitive.NilObjectID
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Forum.DeleteComment(ctx, id, authorID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Comment not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OKMessage(w, r, "Comment deleted", nil)
}

// ServeLikeComment handles POST /api/forum/comments/{commentId}/like.
func (h *Handler) ServeLikeComment(w http.ResponseWriter, r *http.Request) {
	id, ok := commentID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	comment, err := h.Forum.LikeComment(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Comment not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, comment)
}
