package models

import (
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestConversationID_OrderIndependent(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	ab := ConversationID(a, b)
	ba := ConversationID(b, a)
	if ab != ba {
		t.Errorf("ConversationID(a, b) = %q, ConversationID(b, a) = %q; want equal", ab, ba)
	}

	parts := strings.Split(ab, ":")
	if len(parts) != 2 {
		t.Fatalf("ConversationID format = %q, want two hex IDs joined by a colon", ab)
	}
	if parts[0] > parts[1] {
		t.Errorf("ConversationID parts not sorted: %q > %q", parts[0], parts[1])
	}
}

func TestIsValidMessageType(t *testing.T) {
	for _, valid := range []string{MessageText, MessageImage, MessageFile, MessageAIReport} {
		if !IsValidMessageType(valid) {
			t.Errorf("IsValidMessageType(%q) = false, want true", valid)
		}
	}
	for _, invalid := range []string{"", "video", "TEXT"} {
		if IsValidMessageType(invalid) {
			t.Errorf("IsValidMessageType(%q) = true, want false", invalid)
		}
	}
}
