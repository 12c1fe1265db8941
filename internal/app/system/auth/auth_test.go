package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kneetrack/kneetrack/internal/domain/models"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"missing", "", ""},
		{"bearer", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"wrong scheme", "Basic abc123", ""},
		{"no token", "Bearer", ""},
		{"padded", "Bearer   abc123  ", "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := BearerToken(r); got != tt.want {
				t.Errorf("BearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequireSignedIn(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	// No user in context.
	rec := httptest.NewRecorder()
	RequireSignedIn(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if called {
		t.Error("next handler ran without a signed-in user")
	}

	// User present.
	rec = httptest.NewRecorder()
	r := WithUser(httptest.NewRequest(http.MethodGet, "/", nil), &models.User{Role: models.RolePatient, Active: true})
	RequireSignedIn(next).ServeHTTP(rec, r)
	if !called {
		t.Error("next handler did not run for a signed-in user")
	}
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := RequireRole(models.RoleDoctor, models.RoleAdmin)(next)

	tests := []struct {
		name string
		user *models.User
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"patient", &models.User{Role: models.RolePatient}, http.StatusForbidden},
		{"doctor", &models.User{Role: models.RoleDoctor}, http.StatusOK},
		{"admin", &models.User{Role: models.RoleAdmin}, http.StatusOK},
		{"case insensitive", &models.User{Role: "Doctor"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.user != nil {
				r = WithUser(r, tt.user)
			}
			rec := httptest.NewRecorder()
			mw.ServeHTTP(rec, r)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
