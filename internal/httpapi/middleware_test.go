package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIPRateLimiterDisabled(t *testing.T) {
	l := newIPRateLimiter(0, 0)
	if l != nil {
		t.Fatal("expected nil limiter when disabled")
	}
	for i := 0; i < 100; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatal("disabled limiter must always allow")
		}
	}
}

func TestIPRateLimiterEnforcesBurst(t *testing.T) {
	l := newIPRateLimiter(1, 2)
	allowed := 0
	for i := 0; i < 10; i++ {
		if l.Allow("1.2.3.4") {
			allowed++
		}
	}
	if allowed != 2 {
		t.Fatalf("expected burst of 2 allowed, got %d", allowed)
	}
	// other clients have their own budget
	if !l.Allow("5.6.7.8") {
		t.Fatal("expected a fresh client to be allowed")
	}
}

func TestRemoteIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if got := remoteIP(r); got != "10.0.0.1" {
		t.Fatalf("expected 10.0.0.1, got %q", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := remoteIP(r); got != "203.0.113.7" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
}

func TestCORSPolicyAllowAll(t *testing.T) {
	c := newCORSPolicy([]string{"*"})
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "https://example.com")

	if !c.applyHeaders(w, r) {
		t.Fatal("wildcard policy must allow any origin")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatal("expected Access-Control-Allow-Origin header")
	}
}

func TestCORSPolicyRejectsUnknownOrigin(t *testing.T) {
	c := newCORSPolicy([]string{"https://allowed.example"})
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "https://evil.example")

	if c.applyHeaders(w, r) {
		t.Fatal("unknown origin must be rejected")
	}
}

func TestResponseRecorderDefaultsToOK(t *testing.T) {
	w := httptest.NewRecorder()
	rec := newResponseRecorder(w)
	if _, err := rec.Write([]byte("body")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if rec.Status() != http.StatusOK {
		t.Fatalf("expected implicit 200, got %d", rec.Status())
	}
	if rec.bytes != 4 {
		t.Fatalf("expected 4 bytes recorded, got %d", rec.bytes)
	}
}
