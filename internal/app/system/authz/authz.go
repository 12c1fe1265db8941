// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// UserCtx returns the user's role (lowercased), ObjectID, and a found
// flag. ok=false means no authenticated user is on the request; callers
// can trust ok=true means an active account with a valid ObjectID.
func UserCtx(r *http.Request) (role string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.ID, true
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, ok := UserCtx(r)
	return ok && role == models.RoleAdmin
}

// IsDoctor reports whether the current request's user is a doctor.
func IsDoctor(r *http.Request) bool {
	role, _, ok := UserCtx(r)
	return ok && role == models.RoleDoctor
}

// IsPatient reports whether the current request's user is a patient.
func IsPatient(r *http.Request) bool {
	role, _, ok := UserCtx(r)
	return ok && role == models.RolePatient
}

// IsSelf reports whether the current request's user is the given user.
func IsSelf(r *http.Request, id primitive.ObjectID) bool {
	_, userID, ok := UserCtx(r)
	return ok && userID == id
}
