// internal/app/features/forum/posts.go
package forum

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kneetrack/kneetrack/internal/app/policy/fieldgrant"
	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/paging"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

type createPostRequest struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// ServeCreatePost handles POST /api/forum/posts.
func (h *Handler) ServeCreatePost(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)

	var req createPostRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	fieldErrs := map[string]string{}
	if req.Title == "" {
		fieldErrs["title"] = "title is required"
	}
	if req.Body == "" {
		fieldErrs["body"] = "body is required"
	}
	if len(fieldErrs) > 0 {
		httpjson.ValidationError(w, r, fieldErrs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Forum.CreatePost(ctx, models.ForumPost{
		UserID:   actor.ID,
		Title:    req.Title,
		Body:     req.Body,
		Category: req.Category,
		Tags:     req.Tags,
	})
	if err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	h.Audit.Action(ctx, r, actor, audit.ActionForumPostCreated, audit.EntityForumPosts, &created.ID, nil)
	httpjson.Created(w, r, created)
}

type postListResponse struct {
	Posts      any         `json:"posts"`
	Pagination paging.Meta `json:"pagination"`
}

// ServeListPosts handles GET /api/forum/posts with optional category.
func (h *Handler) ServeListPosts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p := paging.Parse(r)
	posts, total, err := h.Forum.ListPosts(ctx, r.URL.Query().Get("category"), p.Skip(), p.Limit64())
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, postListResponse{Posts: posts, Pagination: p.MetaFor(total)})
}

func postID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid post id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// ServeViewPost handles GET /api/forum/posts/{id}.
func (h *Handler) ServeViewPost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	post, err := h.Forum.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Post not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, post)
}

// ServeUpdatePost handles PATCH /api/forum/posts/{id}. Authors edit
// their own posts.
func (h *Handler) ServeUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}
	actor, _ := sysauth.CurrentUser(r)

	var raw map[string]any
	if err := httpjson.Decode(r, &raw); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	granted := fieldgrant.Filter(actor.Role, fieldgrant.EntityForumPosts, raw)
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

	updated, err := h.Forum.UpdatePost(ctx, id, actor.ID, patch)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Post not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, updated)
}

// ServeDeletePost handles DELETE /api/forum/posts/{id}. Authors delete
// their own posts; admins may remove any post.
func (h *Handler) ServeDeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
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

	if err := h.Forum.DeletePost(ctx, id, authorID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Post not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OKMessage(w, r, "Post deleted", nil)
}

// ServeLikePost handles POST /api/forum/posts/{id}/like.
func (h *Handler) ServeLikePost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	post, err := h.Forum.LikePost(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Post not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, post)
}
