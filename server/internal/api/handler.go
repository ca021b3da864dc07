package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/siriusexpedition/sirius/pkg/types"
	"github.com/siriusexpedition/sirius/server/internal/auth"
	"github.com/siriusexpedition/sirius/server/internal/metrics"
	"github.com/siriusexpedition/sirius/server/internal/newsletter"
	"github.com/siriusexpedition/sirius/server/internal/password"
	"github.com/siriusexpedition/sirius/server/internal/visitor"
	"github.com/siriusexpedition/sirius/server/internal/webstorage"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 16 << 10

// Subscriber starts newsletter subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, email string) (newsletter.Outcome, error)
}

// Deps are the services behind the API. Rules is called per request so a
// config reload takes effect immediately. OnVisit and LiveClients are optional.
type Deps struct {
	Backend     string
	Visitors    *visitor.Reconciler
	Newsletter  Subscriber
	Auth        *auth.Service
	Metrics     *metrics.Registry
	Rules       func() password.Rules
	OnVisit     func()
	LiveClients func() int
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	Deps
	mux *http.ServeMux
}

// New creates a Handler and registers all routes.
func New(d Deps) http.Handler {
	if d.Rules == nil {
		d.Rules = password.DefaultRules
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	h := &Handler{Deps: d, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/password/check", h.checkPassword)
	h.mux.HandleFunc("/api/v1/visits", h.visits)
	h.mux.HandleFunc("/api/v1/newsletter", h.subscribe)
	h.mux.HandleFunc("/api/v1/admin/login", h.login)
	h.mux.HandleFunc("/api/v1/admin/logout", h.logout)

	requireAdmin := auth.RequireAdmin(d.Auth.Tokens())
	h.mux.Handle("/api/v1/admin/dashboard", requireAdmin(http.HandlerFunc(h.dashboard)))
	h.mux.Handle("/api/v1/admin/password", requireAdmin(http.HandlerFunc(h.changePassword)))

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, types.HealthResponse{
		Status:  "ok",
		Storage: h.Backend,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// checkPassword returns POST /api/v1/password/check.
func (h *Handler) checkPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req types.PasswordCheckRequest
	if !decodeBody(w, r, &req) {
		return
	}
	jsonResp(w, http.StatusOK, toPasswordCheck(password.Check(req.Password, h.Rules())))
}

// visits handles POST (count) and GET (read) on /api/v1/visits.
func (h *Handler) visits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.recordVisit(w, r)
	case http.MethodGet:
		h.visitStats(w, r)
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) recordVisit(w http.ResponseWriter, r *http.Request) {
	device := webstorage.Device(w, r)
	session := webstorage.Session(w, r)

	// Reconcile writes cookies, so it must finish before the body is written.
	res := h.Visitors.Reconcile(r.Context(), device, session)

	outcome := res.Source
	if !res.Counted {
		outcome = "repeat"
	}
	h.Metrics.IncVisit(outcome)
	if res.Source == visitor.SourceRemote {
		h.Metrics.SetVisitors(res.Stats.Total, res.Stats.Today)
	}
	if res.Counted && h.OnVisit != nil {
		h.OnVisit()
	}

	jsonResp(w, http.StatusOK, toVisitResponse(res))
}

func (h *Handler) visitStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Visitors.Stats(r.Context())
	if err != nil {
		slog.Warn("api: read visitor stats", "err", err)
		jsonErr(w, http.StatusServiceUnavailable, "visitor stats unavailable")
		return
	}
	jsonResp(w, http.StatusOK, toVisitorStats(stats))
}

// subscribe returns POST /api/v1/newsletter.
func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req types.NewsletterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	outcome, err := h.Newsletter.Subscribe(r.Context(), req.Email)
	h.Metrics.IncNewsletter(string(outcome))

	switch outcome {
	case newsletter.OutcomeSubscribed:
		jsonResp(w, http.StatusOK, types.MessageResponse{
			Message: "Please check your inbox to confirm your subscription",
		})
	case newsletter.OutcomeAlreadySubscribed:
		jsonErr(w, http.StatusConflict, "This email is already subscribed")
	case newsletter.OutcomeInvalidEmail:
		jsonErr(w, http.StatusBadRequest, "Invalid email address")
	default:
		slog.Error("api: newsletter subscription failed", "err", err)
		jsonErr(w, http.StatusBadGateway, "Subscription failed, please try again later")
	}
}

// login returns POST /api/v1/admin/login.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req types.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tok, admin, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.Metrics.IncLogin("failure")
		jsonErr(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		h.Metrics.IncLogin("error")
		slog.Error("api: admin login", "err", err)
		jsonErr(w, http.StatusInternalServerError, "login unavailable")
		return
	}

	h.Metrics.IncLogin("success")
	auth.SetSessionCookie(w, r, tok)
	jsonResp(w, http.StatusOK, types.LoginResponse{
		Token:     tok.Value,
		ExpiresAt: tok.ExpiresAt,
		Admin:     toAdminInfo(admin),
	})
}

// logout returns POST /api/v1/admin/logout.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	auth.ClearSessionCookie(w, r)
	jsonResp(w, http.StatusOK, types.MessageResponse{Message: "signed out"})
}

// dashboard returns GET /api/v1/admin/dashboard.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	claims, _ := auth.ClaimsFrom(r.Context())

	resp := types.DashboardResponse{
		Admin:         claims.Email,
		Counters:      h.Metrics.Snapshot(),
		PasswordRules: toPasswordRules(h.Rules()),
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if stats, err := h.Visitors.Stats(r.Context()); err != nil {
		resp.VisitorsError = "visitor stats unavailable"
	} else {
		resp.Visitors = toVisitorStats(stats)
	}
	if h.LiveClients != nil {
		resp.LiveClients = h.LiveClients()
	}
	jsonResp(w, http.StatusOK, resp)
}

// changePassword returns POST /api/v1/admin/password.
func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req types.ChangePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	claims, _ := auth.ClaimsFrom(r.Context())

	err := h.Auth.ChangePassword(r.Context(), claims.Subject, req.CurrentPassword, req.NewPassword)
	var pe *auth.PolicyError
	switch {
	case err == nil:
		jsonResp(w, http.StatusOK, types.MessageResponse{Message: "password changed"})
	case errors.As(err, &pe):
		jsonResp(w, http.StatusUnprocessableEntity, types.ErrorResponse{
			Error:   "password does not meet the policy",
			Details: pe.Violations,
		})
	case errors.Is(err, auth.ErrInvalidCredentials):
		jsonErr(w, http.StatusForbidden, "current password is incorrect")
	case errors.Is(err, auth.ErrAdminNotFound):
		jsonErr(w, http.StatusUnauthorized, "unknown admin")
	default:
		slog.Error("api: change password", "admin", claims.Subject, "err", err)
		jsonErr(w, http.StatusInternalServerError, "password change failed")
	}
}

// --- helpers ----------------------------------------------------------------

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, types.ErrorResponse{Error: msg})
}
