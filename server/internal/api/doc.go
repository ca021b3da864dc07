// Package api implements the HTTP REST API for sirius-server.
//
// New(deps) returns an http.Handler that serves:
//
//	GET  /api/v1/health            liveness and storage backend name
//	POST /api/v1/password/check    validation and strength report under the current rules
//	POST /api/v1/visits            count this page load (cookie storage) and return the stats
//	GET  /api/v1/visits            current shared stats, without counting
//	POST /api/v1/newsletter        double opt-in subscription proxy
//	POST /api/v1/admin/login       token in the body and the sx_admin cookie
//	POST /api/v1/admin/logout      clears the cookie
//	GET  /api/v1/admin/dashboard   admin only: visitor stats and service counters
//	POST /api/v1/admin/password    admin only: change password under the policy
//
// All endpoints respond with Content-Type: application/json, return 405 for
// the wrong method and use {"error": ...} bodies. Wire types live in
// pkg/types. No external HTTP framework is used.
package api
