package types

import "time"

// ErrorResponse is the body of every non-2xx response. Details lists rule
// violations when a password is rejected.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// MessageResponse is a plain confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
	Time    string `json:"time"` // RFC3339
}

// VisitorStats are the shared counters.
type VisitorStats struct {
	Total       int64     `json:"total"`
	Today       int64     `json:"today"`
	LastUpdated time.Time `json:"last_updated"`
}

// VisitResponse is the payload for POST /api/v1/visits. Source is "remote"
// when the counters came from the shared record and "local" when they came
// from the device mirror.
type VisitResponse struct {
	VisitorStats
	Source    string `json:"source"`
	Counted   bool   `json:"counted"`
	VisitorID string `json:"visitor_id"`
}

// PasswordCheckRequest is the body of POST /api/v1/password/check.
type PasswordCheckRequest struct {
	Password string `json:"password"`
}

// PasswordCheckResponse carries the validation result and strength meter.
type PasswordCheckResponse struct {
	Valid  bool     `json:"is_valid"`
	Errors []string `json:"errors"`
	Score  int      `json:"score"`
	Label  string   `json:"label"`
	Tier   string   `json:"tier"`
	Color  string   `json:"color"`
}

// NewsletterRequest is the body of POST /api/v1/newsletter.
type NewsletterRequest struct {
	Email string `json:"email"`
}

// LoginRequest is the body of POST /api/v1/admin/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminInfo describes the signed-in admin.
type AdminInfo struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// LoginResponse is returned on successful login. The token is also set as
// an HttpOnly cookie.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Admin     AdminInfo `json:"admin"`
}

// ChangePasswordRequest is the body of POST /api/v1/admin/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// PasswordRules mirrors the active password policy.
type PasswordRules struct {
	MinLength          int  `json:"min_length"`
	RequireUppercase   bool `json:"require_uppercase"`
	RequireLowercase   bool `json:"require_lowercase"`
	RequireNumber      bool `json:"require_number"`
	RequireSpecialChar bool `json:"require_special_char"`
}

// DashboardResponse is the payload for GET /api/v1/admin/dashboard.
type DashboardResponse struct {
	Admin         string                      `json:"admin"`
	Visitors      VisitorStats                `json:"visitors"`
	VisitorsError string                      `json:"visitors_error,omitempty"`
	Counters      map[string]map[string]int64 `json:"counters"`
	LiveClients   int                         `json:"live_clients"`
	PasswordRules PasswordRules               `json:"password_rules"`
	GeneratedAt   string                      `json:"generated_at"` // RFC3339
}
