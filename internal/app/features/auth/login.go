// internal/app/features/auth/login.go
package auth

import (
	"context"
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ServeLogin handles POST /api/auth/login.
//
// Every failure path returns the same 401 message so responses don't
// reveal whether an account exists.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		httpjson.BadRequest(w, r, "email and password are required")
		return
	}

	if allowed, _ := h.LoginLimiter.Check(r, req.Email); !allowed {
		httpjson.TooManyRequests(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	user, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			h.Log.Error("login lookup failed", zap.Error(err))
		}
		h.Audit.LoginFailed(ctx, r, req.Email, "unknown account")
		httpjson.Unauthorized(w, r, "Invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.Audit.LoginFailed(ctx, r, req.Email, "wrong password")
		httpjson.Unauthorized(w, r, "Invalid email or password")
		return
	}

	if !user.Active {
		h.Audit.LoginFailed(ctx, r, req.Email, "account deactivated")
		httpjson.Unauthorized(w, r, "Invalid email or password")
		return
	}

	token, err := h.Tokens.Issue(user)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}

	h.LoginLimiter.ResetEmail(req.Email)
	h.Audit.LoginSuccess(ctx, r, user)

	httpjson.OK(w, r, authResponse{Token: token, User: user})
}
