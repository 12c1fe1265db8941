package auditlog

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/kneetrack/kneetrack/internal/app/store/audit"
)

func TestRedact_MasksPasswordFields(t *testing.T) {
	in := bson.M{
		"password":    "hunter2",
		"newPassword": "hunter3",
		"email":       "user@example.com",
	}
	out := Redact(in)

	if out["password"] != "***masked***" {
		t.Errorf("password = %v, want masked", out["password"])
	}
	if out["newPassword"] != "***masked***" {
		t.Errorf("newPassword = %v, want masked", out["newPassword"])
	}
	if out["email"] != "user@example.com" {
		t.Errorf("email = %v, want unchanged", out["email"])
	}

	// Input must not be mutated.
	if in["password"] != "hunter2" {
		t.Error("Redact mutated its input")
	}
}

func TestRedact_DescendsIntoNestedMaps(t *testing.T) {
	in := bson.M{
		"before": bson.M{"password": "hunter2", "email": "user@example.com"},
		"after":  map[string]any{"newPassword": "hunter3"},
	}
	out := Redact(in)

	before, ok := out["before"].(bson.M)
	if !ok {
		t.Fatalf("before = %T, want bson.M", out["before"])
	}
	if before["password"] != "***masked***" {
		t.Errorf("nested password = %v, want masked", before["password"])
	}
	if before["email"] != "user@example.com" {
		t.Errorf("nested email = %v, want unchanged", before["email"])
	}

	after, ok := out["after"].(bson.M)
	if !ok {
		t.Fatalf("after = %T, want bson.M", out["after"])
	}
	if after["newPassword"] != "***masked***" {
		t.Errorf("nested newPassword = %v, want masked", after["newPassword"])
	}

	// The original nested maps must keep their values.
	if in["before"].(bson.M)["password"] != "hunter2" {
		t.Error("Redact mutated a nested input map")
	}
}

func TestRedact_Nil(t *testing.T) {
	if Redact(nil) != nil {
		t.Error("Redact(nil) should be nil")
	}
}

func TestTruncateUserAgent(t *testing.T) {
	short := "Mozilla/5.0"
	if got := truncateUserAgent(short); got != short {
		t.Errorf("short UA changed: %q", got)
	}

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	got := truncateUserAgent(string(long))
	if len(got) != maxUserAgentLen {
		t.Errorf("len = %d, want %d", len(got), maxUserAgentLen)
	}
}

func TestRecord_NilLoggerIsNoop(t *testing.T) {
	var l *Logger
	// Must not panic.
	l.Record(context.Background(), audit.Entry{Action: audit.ActionUserLogin})
}
