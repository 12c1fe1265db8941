package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	authfeature "github.com/kneetrack/kneetrack/internal/app/features/auth"
	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/testutil"
)

const testAdminSecret = "test-admin-secret"

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    map[string]any    `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func newTestHandler(t *testing.T) *authfeature.Handler {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	tokens := sysauth.NewTokens("test-secret", time.Hour)
	auditLogger := auditlog.New(audit.New(db), logger, auditlog.Config{Mode: "off"})
	return authfeature.NewHandler(db, tokens, auditLogger, testAdminSecret, logger)
}

func postJSON(t *testing.T, h http.HandlerFunc, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("response is not a JSON envelope: %v\nbody: %s", err, rec.Body.String())
		}
	}
	return rec, env
}

func TestNewHandler(t *testing.T) {
	if h := newTestHandler(t); h == nil {
		t.Fatal("NewHandler() returned nil")
	}
}

func TestRegister_Patient(t *testing.T) {
	h := newTestHandler(t)

	rec, env := postJSON(t, h.ServeRegister, "/api/auth/register", `{
		"email": "jane@example.com",
		"password": "correct-horse",
		"first_name": "Jane",
		"last_name": "Doe"
	}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d\nbody: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if !env.Success {
		t.Error("success = false, want true")
	}
	if tok, _ := env.Data["token"].(string); tok == "" {
		t.Error("response has no token")
	}

	user, _ := env.Data["user"].(map[string]any)
	if user == nil {
		t.Fatal("response has no user")
	}
	if user["email"] != "jane@example.com" {
		t.Errorf("user email = %v, want jane@example.com", user["email"])
	}
	if user["role"] != "patient" {
		t.Errorf("user role = %v, want patient (default)", user["role"])
	}
	if _, leaked := user["password"]; leaked {
		t.Error("password hash leaked in response body")
	}
}

func TestRegister_ValidationErrors(t *testing.T) {
	h := newTestHandler(t)

	rec, env := postJSON(t, h.ServeRegister, "/api/auth/register", `{
		"email": "not-an-email",
		"password": "short"
	}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	for _, field := range []string{"email", "password", "first_name", "last_name"} {
		if env.Errors[field] == "" {
			t.Errorf("missing validation error for %q", field)
		}
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	h := newTestHandler(t)

	body := `{
		"email": "dup@example.com",
		"password": "correct-horse",
		"first_name": "First",
		"last_name": "User"
	}`
	if rec, _ := postJSON(t, h.ServeRegister, "/api/auth/register", body); rec.Code != http.StatusCreated {
		t.Fatalf("first registration failed: %d", rec.Code)
	}

	rec, env := postJSON(t, h.ServeRegister, "/api/auth/register", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if env.Errors["email"] == "" {
		t.Error("missing validation error for duplicate email")
	}
}

func TestRegister_AdminRequiresSecret(t *testing.T) {
	h := newTestHandler(t)

	rec, _ := postJSON(t, h.ServeRegister, "/api/auth/register", `{
		"email": "sneaky@example.com",
		"password": "correct-horse",
		"first_name": "Sneaky",
		"last_name": "Admin",
		"role": "admin"
	}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status without secret = %d, want %d", rec.Code, http.StatusForbidden)
	}

	rec, env := postJSON(t, h.ServeRegister, "/api/auth/register", `{
		"email": "real@example.com",
		"password": "correct-horse",
		"first_name": "Real",
		"last_name": "Admin",
		"role": "admin",
		"admin_secret": "`+testAdminSecret+`"
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status with secret = %d, want %d\nbody: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if user, _ := env.Data["user"].(map[string]any); user["role"] != "admin" {
		t.Errorf("user role = %v, want admin", user["role"])
	}
}

func TestLogin(t *testing.T) {
	h := newTestHandler(t)

	if rec, _ := postJSON(t, h.ServeRegister, "/api/auth/register", `{
		"email": "login@example.com",
		"password": "correct-horse",
		"first_name": "Log",
		"last_name": "In"
	}`); rec.Code != http.StatusCreated {
		t.Fatalf("registration failed: %d", rec.Code)
	}

	rec, env := postJSON(t, h.ServeLogin, "/api/auth/login", `{
		"email": "Login@Example.COM",
		"password": "correct-horse"
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want %d\nbody: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if tok, _ := env.Data["token"].(string); tok == "" {
		t.Error("login response has no token")
	}

	rec, env = postJSON(t, h.ServeLogin, "/api/auth/login", `{
		"email": "login@example.com",
		"password": "wrong-password"
	}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad-password status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(env.Message, "Invalid email or password") {
		t.Errorf("bad-password message = %q, want generic credentials error", env.Message)
	}

	rec, _ = postJSON(t, h.ServeLogin, "/api/auth/login", `{
		"email": "nobody@example.com",
		"password": "correct-horse"
	}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown-account status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
