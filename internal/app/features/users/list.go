// internal/app/features/users/list.go
package users

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/pantry/query"

	userstore "github.com/kneetrack/kneetrack/internal/app/store/users"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/paging"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
)

type listResponse struct {
	Users      any         `json:"users"`
	Pagination paging.Meta `json:"pagination"`
}

// ServeList handles GET /api/users. Admin only; supports role, active,
// and search query parameters.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	p := paging.Parse(r)
	filter := userstore.ListFilter{
		Role:       query.Get(r, "role"),
		ActiveOnly: query.Get(r, "active") == "true",
		Search:     query.Get(r, "search"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users, total, err := h.Users.List(ctx, filter, p.Skip(), p.Limit64())
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}

	httpjson.OK(w, r, listResponse{Users: users, Pagination: p.MetaFor(total)})
}
