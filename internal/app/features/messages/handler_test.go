package messages_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	messagesfeature "github.com/kneetrack/kneetrack/internal/app/features/messages"
	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/domain/models"
	"github.com/kneetrack/kneetrack/internal/testutil"
)

type envelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func newTestHandler(t *testing.T) (*messagesfeature.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	auditLogger := auditlog.New(audit.New(db), logger, auditlog.Config{Mode: "off"})
	return messagesfeature.NewHandler(db, auditLogger, logger), testutil.NewFixtures(t, db)
}

func serve(t *testing.T, h http.HandlerFunc, r *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, r)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("response is not a JSON envelope: %v\nbody: %s", err, rec.Body.String())
		}
	}
	return rec, env
}

func send(t *testing.T, h *messagesfeature.Handler, from *models.User, to string, content string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	body := fmt.Sprintf(`{"receiver_id": %q, "content": %q}`, to, content)
	req := httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewReader([]byte(body)))
	req = sysauth.WithUser(req, from)
	return serve(t, h.ServeSend, req)
}

func TestSendAndConversation(t *testing.T) {
	h, f := newTestHandler(t)
	ctx := context.Background()
	patient := f.CreatePatient(ctx)
	doctor := f.CreateDoctor(ctx)

	rec, env := send(t, h, &patient, doctor.ID.Hex(), "Knee still aches after stairs.")
	if rec.Code != http.StatusCreated {
		t.Fatalf("send status = %d\nbody: %s", rec.Code, rec.Body.String())
	}
	if env.Data["content"] != "Knee still aches after stairs." {
		t.Errorf("content = %v", env.Data["content"])
	}

	if rec, _ := send(t, h, &doctor, patient.ID.Hex(), "Try the ice protocol tonight."); rec.Code != http.StatusCreated {
		t.Fatalf("reply status = %d", rec.Code)
	}

	// Both directions land in one conversation.
	req := httptest.NewRequest(http.MethodGet, "/api/messages/with/"+doctor.ID.Hex(), nil)
	req = testutil.WithChiURLParam(req, "userId", doctor.ID.Hex())
	req = sysauth.WithUser(req, &patient)
	rec, env = serve(t, h.ServeConversation, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("conversation status = %d\nbody: %s", rec.Code, rec.Body.String())
	}
	if msgs, _ := env.Data["messages"].([]any); len(msgs) != 2 {
		t.Errorf("conversation has %d messages, want 2", len(msgs))
	}
}

func TestSend_UnknownReceiver(t *testing.T) {
	h, f := newTestHandler(t)
	patient := f.CreatePatient(context.Background())

	rec, _ := send(t, h, &patient, unknownID(), "hello?")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// unknownID returns a hex ID that matches no user.
func unknownID() string {
	return "65f000000000000000000000"
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	h, f := newTestHandler(t)
	ctx := context.Background()
	patient := f.CreatePatient(ctx)
	doctor := f.CreateDoctor(ctx)

	send(t, h, &patient, doctor.ID.Hex(), "first")
	send(t, h, &patient, doctor.ID.Hex(), "second")

	req := sysauth.WithUser(httptest.NewRequest(http.MethodGet, "/api/messages/unread-count", nil), &doctor)
	rec, env := serve(t, h.ServeUnreadCount, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unread status = %d\nbody: %s", rec.Code, rec.Body.String())
	}
	if env.Data["unread"] != float64(2) {
		t.Errorf("unread = %v, want 2", env.Data["unread"])
	}

	req = httptest.NewRequest(http.MethodPost, "/api/messages/with/"+patient.ID.Hex()+"/read", nil)
	req = testutil.WithChiURLParam(req, "userId", patient.ID.Hex())
	req = sysauth.WithUser(req, &doctor)
	rec, env = serve(t, h.ServeMarkRead, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("mark-read status = %d\nbody: %s", rec.Code, rec.Body.String())
	}
	if env.Data["marked_read"] != float64(2) {
		t.Errorf("marked_read = %v, want 2", env.Data["marked_read"])
	}

	req = sysauth.WithUser(httptest.NewRequest(http.MethodGet, "/api/messages/unread-count", nil), &doctor)
	_, env = serve(t, h.ServeUnreadCount, req)
	if env.Data["unread"] != float64(0) {
		t.Errorf("unread after mark-read = %v, want 0", env.Data["unread"])
	}
}

func TestDelete_SenderOnly(t *testing.T) {
	h, f := newTestHandler(t)
	ctx := context.Background()
	patient := f.CreatePatient(ctx)
	doctor := f.CreateDoctor(ctx)

	_, env := send(t, h, &patient, doctor.ID.Hex(), "oops, wrong chat")
	id, _ := env.Data["id"].(string)
	if id == "" {
		t.Fatal("sent message has no id")
	}

	// The receiver cannot delete the sender's message.
	req := httptest.NewRequest(http.MethodDelete, "/api/messages/"+id, nil)
	req = testutil.WithChiURLParam(req, "id", id)
	req = sysauth.WithUser(req, &doctor)
	rec, _ := serve(t, h.ServeDelete, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("receiver delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/messages/"+id, nil)
	req = testutil.WithChiURLParam(req, "id", id)
	req = sysauth.WithUser(req, &patient)
	rec, _ = serve(t, h.ServeDelete, req)
	if rec.Code != http.StatusOK {
		t.Errorf("sender delete status = %d, want %d", rec.Code, http.StatusOK)
	}
}
