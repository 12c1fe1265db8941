// internal/app/features/auth/register.go
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	userstore "github.com/kneetrack/kneetrack/internal/app/store/users"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/normalize"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

const minPasswordLen = 8

type registerRequest struct {
	Email       string              `json:"email"`
	Password    string              `json:"password"`
	FirstName   string              `json:"first_name"`
	LastName    string              `json:"last_name"`
	Phone       string              `json:"phone"`
	DateOfBirth time.Time           `json:"date_of_birth"`
	Gender      string              `json:"gender"`
	Role        string              `json:"role"`
	AdminSecret string              `json:"admin_secret"`
	MedicalInfo *models.MedicalInfo `json:"medical_info"`
	DoctorInfo  *models.DoctorInfo  `json:"doctor_info"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (req *registerRequest) validate() map[string]string {
	errs := map[string]string{}
	if normalize.Email(req.Email) == "" || !strings.Contains(req.Email, "@") {
		errs["email"] = "a valid email address is required"
	}
	if len(req.Password) < minPasswordLen {
		errs["password"] = "password must be at least 8 characters"
	}
	if normalize.Name(req.FirstName) == "" {
		errs["first_name"] = "first name is required"
	}
	if normalize.Name(req.LastName) == "" {
		errs["last_name"] = "last name is required"
	}
	if req.Gender != "" && !models.IsValidGender(normalize.Gender(req.Gender)) {
		errs["gender"] = `gender must be "male", "female", or "other"`
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ServeRegister handles POST /api/auth/register.
func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	if errs := req.validate(); errs != nil {
		httpjson.ValidationError(w, r, "Validation failed", errs)
		return
	}

	role := normalize.Role(req.Role)
	if role == "" {
		role = models.RolePatient
	}
	if !models.IsValidRole(role) {
		httpjson.ValidationError(w, r, "Validation failed", map[string]string{
			"role": `role must be "patient", "doctor", or "admin"`,
		})
		return
	}

	// Admin accounts are gated behind a shared deployment secret.
	if role == models.RoleAdmin {
		if h.AdminSecret == "" ||
			subtle.ConstantTimeCompare([]byte(req.AdminSecret), []byte(h.AdminSecret)) != 1 {
			httpjson.Forbidden(w, r, "Access denied")
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	user, err := h.Users.Create(ctx, models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        strings.TrimSpace(req.Phone),
		DateOfBirth:  req.DateOfBirth,
		Gender:       normalize.Gender(req.Gender),
		Role:         role,
		MedicalInfo:  req.MedicalInfo,
		DoctorInfo:   req.DoctorInfo,
	})
	if err != nil {
		switch {
		case errors.Is(err, userstore.ErrDuplicateEmail):
			httpjson.ValidationError(w, r, "Validation failed", map[string]string{"email": err.Error()})
		case errors.Is(err, userstore.ErrDuplicateLicense):
			httpjson.ValidationError(w, r, "Validation failed", map[string]string{"doctor_info": err.Error()})
		default:
			httpjson.BadRequest(w, r, err.Error())
		}
		return
	}

	h.Audit.Action(ctx, r, &user, audit.ActionUserCreated, audit.EntityUsers, &user.ID, bson.M{
		"email": user.Email,
		"role":  user.Role,
	})

	token, err := h.Tokens.Issue(&user)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}

	httpjson.Created(w, r, authResponse{Token: token, User: &user})
}
