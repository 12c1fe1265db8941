package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	l := New(3, time.Minute)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Error("request over limit was allowed")
	}

	// Other keys are tracked independently.
	if !l.Allow("5.6.7.8") {
		t.Error("unrelated key was denied")
	}
}

func TestLimiter_Remaining(t *testing.T) {
	l := New(5, time.Minute)
	defer l.Stop()

	if got := l.Remaining("k"); got != 5 {
		t.Errorf("Remaining() = %d, want 5", got)
	}
	l.Allow("k")
	l.Allow("k")
	if got := l.Remaining("k"); got != 3 {
		t.Errorf("Remaining() = %d, want 3", got)
	}
}

func TestLimiter_Reset(t *testing.T) {
	l := New(1, time.Minute)
	defer l.Stop()

	l.Allow("k")
	if l.Allow("k") {
		t.Fatal("second request was allowed before reset")
	}
	l.Reset("k")
	if !l.Allow("k") {
		t.Error("request after Reset was denied")
	}
}

func TestLimiter_WindowExpiry(t *testing.T) {
	l := New(1, 10*time.Millisecond)
	defer l.Stop()

	l.Allow("k")
	if l.Allow("k") {
		t.Fatal("second request allowed within window")
	}
	time.Sleep(20 * time.Millisecond)
	if !l.Allow("k") {
		t.Error("request denied after window expired")
	}
}

func TestLimiter_Stop(t *testing.T) {
	l := New(1, time.Minute)

	done := make(chan struct{})
	go func() {
		l.Stop()
		l.Stop() // repeat calls must not panic
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}

	// Limiting still works after the cleanup goroutine is gone.
	l.Allow("k")
	if l.Allow("k") {
		t.Error("request over limit allowed after Stop")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr with port", "10.0.0.1:5000", nil, "10.0.0.1"},
		{"remote addr without port", "10.0.0.1", nil, "10.0.0.1"},
		{"x-forwarded-for", "10.0.0.1:5000", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.2"}, "203.0.113.9"},
		{"x-real-ip", "10.0.0.1:5000", map[string]string{"X-Real-IP": "203.0.113.9"}, "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoginLimiter_Check(t *testing.T) {
	ll := NewLoginLimiterWithConfig(100, time.Minute, 2, time.Minute)
	defer ll.Stop()

	r := httptest.NewRequest(http.MethodPost, "/login", nil)
	r.RemoteAddr = "10.0.0.1:5000"

	for i := 0; i < 2; i++ {
		if ok, _ := ll.Check(r, "user@example.com"); !ok {
			t.Fatalf("attempt %d blocked, want allowed", i+1)
		}
	}
	ok, reason := ll.Check(r, "user@example.com")
	if ok {
		t.Fatal("third attempt for the same email was allowed")
	}
	if reason == "" {
		t.Error("blocked attempt returned empty reason")
	}

	// Email matching is case-insensitive.
	if ok, _ := ll.Check(r, "USER@Example.COM"); ok {
		t.Error("case variant of a blocked email was allowed")
	}

	// A different account from the same IP is still fine.
	if ok, _ := ll.Check(r, "other@example.com"); !ok {
		t.Error("different email from same IP was blocked")
	}
}

func TestLoginLimiter_ResetEmail(t *testing.T) {
	ll := NewLoginLimiterWithConfig(100, time.Minute, 1, time.Minute)
	defer ll.Stop()

	r := httptest.NewRequest(http.MethodPost, "/login", nil)
	r.RemoteAddr = "10.0.0.1:5000"

	ll.Check(r, "user@example.com")
	if ok, _ := ll.Check(r, "user@example.com"); ok {
		t.Fatal("second attempt allowed before reset")
	}
	ll.ResetEmail("user@example.com")
	if ok, _ := ll.Check(r, "user@example.com"); !ok {
		t.Error("attempt after ResetEmail was blocked")
	}
}
