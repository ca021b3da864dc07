// Package auth provides admin authentication and HTTP middleware for
// sirius-server.
//
// Service verifies admin credentials (bcrypt) and enforces the password
// policy when accounts are created or passwords change. Tokens issues and
// verifies HS256 JWTs whose subject is the admin ID.
//
// RequireAdmin(tokens) accepts either an "Authorization: Bearer" header or
// the sx_admin cookie set at login. APIKey(mode, header, key) guards
// machine endpoints such as /metrics: when mode != "apikey" or key == "",
// all requests pass through (useful for local development with auth
// disabled). A missing or incorrect key yields 401 immediately.
package auth
