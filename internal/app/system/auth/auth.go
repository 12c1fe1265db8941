// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// UserSource loads a user by ID for each authenticated request. The
// fresh lookup means deactivating an account takes effect immediately,
// not at token expiry.
type UserSource interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// CurrentUser returns the authenticated user & "found?" flag.
func CurrentUser(r *http.Request) (*models.User, bool) {
	u, ok := r.Context().Value(currentUserKey).(*models.User)
	return u, ok
}

// WithUser injects a user into the request context. Exported for tests
// that exercise handlers directly.
func WithUser(r *http.Request, u *models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// BearerToken extracts the token from an Authorization header.
// Returns "" when the header is absent or not a Bearer scheme.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// LoadUser injects the user into context when the request carries a
// valid bearer token for an active account. It never rejects on its
// own; RequireSignedIn / RequireRole enforce.
func LoadUser(tokens *Tokens, users UserSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			id, err := primitive.ObjectIDFromHex(claims.Subject)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			u, err := users.GetByID(r.Context(), id)
			if err != nil || u == nil || !u.Active {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, WithUser(r, u))
		})
	}
}

// RequireSignedIn ensures there is a user in context (set by LoadUser).
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		httpjson.Unauthorized(w, r, "Authentication required")
	})
}

// RequireRole ensures there is a user in context with one of the
// allowed roles. Missing user → 401; wrong role → 403.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				httpjson.Unauthorized(w, r, "Authentication required")
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				httpjson.Forbidden(w, r, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
