// internal/app/features/auth/account.go
package auth

import (
	"context"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
)

// ServeMe handles GET /api/auth/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	user, ok := sysauth.CurrentUser(r)
	if !ok {
		httpjson.Unauthorized(w, r, "Authentication required")
		return
	}
	httpjson.OK(w, r, user)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ServeChangePassword handles POST /api/auth/change-password.
func (h *Handler) ServeChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := sysauth.CurrentUser(r)
	if !ok {
		httpjson.Unauthorized(w, r, "Authentication required")
		return
	}

	var req changePasswordRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	if len(req.NewPassword) < minPasswordLen {
		httpjson.ValidationError(w, r, "Validation failed", map[string]string{
			"new_password": "password must be at least 8 characters",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		httpjson.Unauthorized(w, r, "Current password is incorrect")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Users.SetPassword(ctx, user.ID, string(hash)); err != nil {
		httpjson.Internal(w, r, err)
		return
	}

	h.Audit.Action(ctx, r, user, audit.ActionPasswordChanged, audit.EntityUsers, &user.ID, nil)
	httpjson.OKMessage(w, r, "Password changed", nil)
}

// ServeLogout handles POST /api/auth/logout. Bearer tokens are stateless,
// so this exists for the audit trail and client symmetry.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	user, ok := sysauth.CurrentUser(r)
	if !ok {
		httpjson.Unauthorized(w, r, "Authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	h.Audit.Logout(ctx, r, user)
	httpjson.OKMessage(w, r, "Logged out", nil)
}
