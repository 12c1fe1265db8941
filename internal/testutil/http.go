package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Patient returns an in-memory patient user for handler tests.
func Patient() *models.User {
	return &models.User{
		ID:        primitive.NewObjectID(),
		Email:     "patient@test.com",
		FirstName: "Test",
		LastName:  "Patient",
		Role:      models.RolePatient,
		Active:    true,
	}
}

// Doctor returns an in-memory doctor user for handler tests.
func Doctor() *models.User {
	return &models.User{
		ID:        primitive.NewObjectID(),
		Email:     "doctor@test.com",
		FirstName: "Test",
		LastName:  "Doctor",
		Role:      models.RoleDoctor,
		Active:    true,
		DoctorInfo: &models.DoctorInfo{
			LicenseNumber:  "LIC-12345",
			Specialization: "Orthopedics",
		},
	}
}

// Admin returns an in-memory admin user for handler tests.
func Admin() *models.User {
	return &models.User{
		ID:        primitive.NewObjectID(),
		Email:     "admin@test.com",
		FirstName: "Test",
		LastName:  "Admin",
		Role:      models.RoleAdmin,
		Active:    true,
	}
}

// WithUser injects a user into the request context, bypassing the
// bearer-token middleware.
func WithUser(r *http.Request, u *models.User) *http.Request {
	return auth.WithUser(r, u)
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}
