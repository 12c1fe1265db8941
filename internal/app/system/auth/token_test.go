package auth

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kneetrack/kneetrack/internal/domain/models"
)

func testUser(role string) *models.User {
	return &models.User{
		ID:     primitive.NewObjectID(),
		Email:  "token@example.com",
		Role:   role,
		Active: true,
	}
}

func TestTokens_IssueAndParse(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	u := testUser(models.RoleDoctor)

	raw, err := tokens.Issue(u)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if raw == "" {
		t.Fatal("Issue() returned empty token")
	}

	claims, err := tokens.Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if claims.Subject != u.ID.Hex() {
		t.Errorf("Subject = %q, want %q", claims.Subject, u.ID.Hex())
	}
	if claims.Role != models.RoleDoctor {
		t.Errorf("Role = %q, want %q", claims.Role, models.RoleDoctor)
	}
	if claims.ExpiresAt == nil {
		t.Fatal("ExpiresAt is nil")
	}
	if remaining := time.Until(claims.ExpiresAt.Time); remaining < 59*time.Minute {
		t.Errorf("token expires too soon: %v remaining", remaining)
	}
}

func TestTokens_ParseRejectsWrongSecret(t *testing.T) {
	issuer := NewTokens("secret-a", time.Hour)
	verifier := NewTokens("secret-b", time.Hour)

	raw, err := issuer.Issue(testUser(models.RolePatient))
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	if _, err := verifier.Parse(raw); err != ErrInvalidToken {
		t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
	}
}

func TestTokens_ParseRejectsExpired(t *testing.T) {
	tokens := NewTokens("test-secret", -time.Minute)

	raw, err := tokens.Issue(testUser(models.RolePatient))
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	if _, err := tokens.Parse(raw); err != ErrInvalidToken {
		t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
	}
}

func TestTokens_ParseRejectsGarbage(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	for _, raw := range []string{"", "not-a-token", "aaa.bbb.ccc"} {
		if _, err := tokens.Parse(raw); err != ErrInvalidToken {
			t.Errorf("Parse(%q) error = %v, want ErrInvalidToken", raw, err)
		}
	}
}
