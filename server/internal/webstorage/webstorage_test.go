package webstorage

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGet_ReadsRequestCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/visits", nil)
	r.AddCookie(&http.Cookie{Name: Prefix + "visitorId", Value: "abc-123"})

	j := Device(httptest.NewRecorder(), r)
	v, ok := j.Get("visitorId")
	if !ok || v != "abc-123" {
		t.Fatalf("Get: got %q %v, want abc-123 true", v, ok)
	}
	if _, ok := j.Get("lastVisitDate"); ok {
		t.Error("Get(missing): expected false")
	}
}

func TestSet_DeviceCookieIsPersistent(t *testing.T) {
	rr := httptest.NewRecorder()
	j := Device(rr, httptest.NewRequest(http.MethodPost, "/", nil))

	if err := j.Set("lastVisitDate", "2026-05-10"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies: got %d, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != "sx_lastVisitDate" || c.Value != "2026-05-10" {
		t.Errorf("cookie: got %s=%s", c.Name, c.Value)
	}
	if c.MaxAge != int(DeviceMaxAge.Seconds()) {
		t.Errorf("MaxAge: got %d, want %d", c.MaxAge, int(DeviceMaxAge.Seconds()))
	}
	if !c.HttpOnly {
		t.Error("HttpOnly: expected true")
	}
}

func TestSet_SessionCookieHasNoLifetime(t *testing.T) {
	rr := httptest.NewRecorder()
	j := Session(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	if err := j.Set("visited_2026-05-10", "true"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	header := rr.Header().Get("Set-Cookie")
	if strings.Contains(header, "Max-Age") || strings.Contains(header, "Expires") {
		t.Errorf("session cookie must not carry a lifetime: %q", header)
	}
}

func TestSet_VisibleToLaterGet(t *testing.T) {
	j := Session(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	j.Set("k", "v") //nolint:errcheck
	if v, ok := j.Get("k"); !ok || v != "v" {
		t.Errorf("Get after Set: got %q %v", v, ok)
	}
}

func TestSet_EscapesValues(t *testing.T) {
	rr := httptest.NewRecorder()
	j := Device(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	j.Set("k", "a b;c") //nolint:errcheck

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	for _, c := range rr.Result().Cookies() {
		r.AddCookie(c)
	}
	v, ok := Device(httptest.NewRecorder(), r).Get("k")
	if !ok || v != "a b;c" {
		t.Errorf("round trip: got %q %v", v, ok)
	}
}

func TestSet_TooLarge(t *testing.T) {
	j := Device(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	err := j.Set("k", strings.Repeat("x", MaxValueLen+1))
	if !errors.Is(err, ErrValueTooLarge) {
		t.Fatalf("Set: got %v, want ErrValueTooLarge", err)
	}
	if _, ok := j.Get("k"); ok {
		t.Error("rejected value must not be visible")
	}
}
