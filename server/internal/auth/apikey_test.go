package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// passHandler writes "ok" with 200.
var passHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("ok"))
})

func callWithKey(t *testing.T, mw func(http.Handler) http.Handler, header, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	if key != "" {
		req.Header.Set(header, key)
	}
	rr := httptest.NewRecorder()
	mw(passHandler).ServeHTTP(rr, req)
	return rr
}

func TestAPIKey_ModeNone_PassesThrough(t *testing.T) {
	// No key on the request; should still pass because mode != "apikey".
	rr := callWithKey(t, APIKey("none", "X-API-Key", "secret"), "X-API-Key", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if rr.Body.String() != "ok" {
		t.Errorf("body: got %q, want ok", rr.Body.String())
	}
}

func TestAPIKey_EmptyKey_PassesThrough(t *testing.T) {
	// key="" means auth is not configured, allow all.
	rr := callWithKey(t, APIKey("apikey", "X-API-Key", ""), "X-API-Key", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
}

func TestAPIKey_CorrectKey_Passes(t *testing.T) {
	rr := callWithKey(t, APIKey("apikey", "X-API-Key", "supersecret"), "X-API-Key", "supersecret")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
}

func TestAPIKey_WrongKey_Unauthorized(t *testing.T) {
	rr := callWithKey(t, APIKey("apikey", "X-API-Key", "supersecret"), "X-API-Key", "wrong")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rr.Code)
	}
}

func TestAPIKey_MissingHeader_Unauthorized(t *testing.T) {
	rr := callWithKey(t, APIKey("apikey", "X-API-Key", "supersecret"), "X-API-Key", "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rr.Code)
	}
}

func TestAPIKey_WrongHeaderName_Unauthorized(t *testing.T) {
	rr := callWithKey(t, APIKey("apikey", "X-API-Key", "supersecret"), "X-Other-Key", "supersecret")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rr.Code)
	}
}
