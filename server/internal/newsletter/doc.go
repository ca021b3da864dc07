// Package newsletter proxies newsletter sign-ups to a Brevo-compatible
// double opt-in endpoint.
//
// The API key never leaves the server. Subscribe classifies the upstream
// answer into an Outcome so callers can map it onto their own status codes
// without parsing provider error bodies.
package newsletter
