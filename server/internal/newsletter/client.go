package newsletter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultEndpoint is Brevo's double opt-in contact creation endpoint.
const DefaultEndpoint = "https://api.brevo.com/v3/contacts/doubleOptinConfirmation"

// Outcome classifies a subscription attempt.
type Outcome string

const (
	OutcomeSubscribed        Outcome = "subscribed"
	OutcomeAlreadySubscribed Outcome = "already_subscribed"
	OutcomeInvalidEmail      Outcome = "invalid_email"
	OutcomeError             Outcome = "error"
)

var (
	// ErrInvalidEmail is returned before any upstream call when the address
	// is blank or lacks an "@".
	ErrInvalidEmail = errors.New("newsletter: invalid email address")

	// ErrNotConfigured is returned when no API key is available.
	ErrNotConfigured = errors.New("newsletter: api key not configured")
)

// Config describes the upstream list. APIKeyEnv names the environment
// variable holding the key; the key itself is never written to config files.
type Config struct {
	Endpoint       string        `yaml:"endpoint"`
	APIKeyEnv      string        `yaml:"api_key_env"`
	ListIDs        []int64       `yaml:"list_ids"`
	TemplateID     int64         `yaml:"template_id"`
	RedirectionURL string        `yaml:"redirection_url"`
	Timeout        time.Duration `yaml:"timeout"`
}

// APIKey resolves the key from the environment at call time so rotated
// secrets are picked up without a restart.
func (c Config) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// Client sends subscription requests upstream.
type Client struct {
	cfg    Config
	apiKey func() string
	http   *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithAPIKey pins the API key instead of reading cfg.APIKeyEnv.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = func() string { return key } }
}

// New returns a Client for cfg.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	c := &Client{
		cfg:    cfg,
		apiKey: cfg.APIKey,
		http:   &http.Client{Timeout: cfg.Timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type subscribeRequest struct {
	Email          string  `json:"email"`
	IncludeListIDs []int64 `json:"includeListIds"`
	TemplateID     int64   `json:"templateId"`
	RedirectionURL string  `json:"redirectionUrl"`
}

type upstreamError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Subscribe starts a double opt-in subscription for email.
// The returned error is non-nil only for OutcomeInvalidEmail and OutcomeError.
func (c *Client) Subscribe(ctx context.Context, email string) (Outcome, error) {
	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return OutcomeInvalidEmail, ErrInvalidEmail
	}

	key := c.apiKey()
	if key == "" {
		return OutcomeError, ErrNotConfigured
	}

	body, err := json.Marshal(subscribeRequest{
		Email:          email,
		IncludeListIDs: c.cfg.ListIDs,
		TemplateID:     c.cfg.TemplateID,
		RedirectionURL: c.cfg.RedirectionURL,
	})
	if err != nil {
		return OutcomeError, fmt.Errorf("newsletter: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return OutcomeError, fmt.Errorf("newsletter: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", key)

	resp, err := c.http.Do(req)
	if err != nil {
		return OutcomeError, fmt.Errorf("newsletter: http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		slog.Debug("newsletter: subscription requested", "status", resp.StatusCode)
		return OutcomeSubscribed, nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var ue upstreamError
	_ = json.Unmarshal(raw, &ue)

	if resp.StatusCode == http.StatusBadRequest && isDuplicate(ue) {
		return OutcomeAlreadySubscribed, nil
	}
	return OutcomeError, fmt.Errorf("newsletter: upstream returned HTTP %d: %s",
		resp.StatusCode, strings.TrimSpace(firstNonEmpty(ue.Message, string(raw))))
}

func isDuplicate(ue upstreamError) bool {
	return ue.Code == "duplicate_parameter" ||
		strings.Contains(strings.ToLower(ue.Message), "already")
}

func validEmail(email string) bool {
	return email != "" && strings.Contains(email, "@")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
