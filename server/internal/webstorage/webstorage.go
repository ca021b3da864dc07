// Package webstorage exposes browser cookies as the device and session
// key-value storage the visitor reconciler expects.
//
// Device storage uses persistent cookies; session storage uses cookies with
// neither Max-Age nor Expires, which the browser drops when the session ends.
// Writes are emitted as Set-Cookie headers, so they must happen before the
// response header is written.
package webstorage

import (
	"errors"
	"net/http"
	"net/url"
	"time"
)

// Prefix namespaces every cookie written by this package.
const Prefix = "sx_"

// MaxValueLen bounds a single stored value (after escaping).
const MaxValueLen = 1024

// DeviceMaxAge is the lifetime of persistent cookies. Browsers cap cookie
// lifetime at 400 days.
const DeviceMaxAge = 400 * 24 * time.Hour

// ErrValueTooLarge is returned by Set when the escaped value exceeds MaxValueLen.
var ErrValueTooLarge = errors.New("webstorage: value too large")

// Jar is one cookie-backed storage scope bound to a request/response pair.
// It is not safe for concurrent use.
type Jar struct {
	w          http.ResponseWriter
	r          *http.Request
	persistent bool
	secure     bool
	pending    map[string]string
}

// Device returns the persistent storage scope for the request.
func Device(w http.ResponseWriter, r *http.Request) *Jar {
	return newJar(w, r, true)
}

// Session returns the session-scoped storage for the request.
func Session(w http.ResponseWriter, r *http.Request) *Jar {
	return newJar(w, r, false)
}

func newJar(w http.ResponseWriter, r *http.Request, persistent bool) *Jar {
	return &Jar{
		w:          w,
		r:          r,
		persistent: persistent,
		secure:     r != nil && r.TLS != nil,
		pending:    make(map[string]string),
	}
}

// Get returns the value stored under key. Values written through this Jar
// are visible immediately.
func (j *Jar) Get(key string) (string, bool) {
	if v, ok := j.pending[key]; ok {
		return v, true
	}
	if j.r == nil {
		return "", false
	}
	c, err := j.r.Cookie(Prefix + key)
	if err != nil {
		return "", false
	}
	v, err := url.QueryUnescape(c.Value)
	if err != nil {
		return "", false
	}
	return v, true
}

// Set stores value under key by emitting a Set-Cookie header.
func (j *Jar) Set(key, value string) error {
	escaped := url.QueryEscape(value)
	if len(escaped) > MaxValueLen {
		return ErrValueTooLarge
	}

	c := &http.Cookie{
		Name:     Prefix + key,
		Value:    escaped,
		Path:     "/",
		HttpOnly: true,
		Secure:   j.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if j.persistent {
		c.MaxAge = int(DeviceMaxAge / time.Second)
	}
	if j.w != nil {
		http.SetCookie(j.w, c)
	}
	j.pending[key] = value
	return nil
}
