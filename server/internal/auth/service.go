package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/siriusexpedition/sirius/server/internal/password"
)

// ErrInvalidCredentials is returned by Login and ChangePassword for any
// unknown email or wrong password.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// PolicyError reports a password rejected by the password rules. Violations
// are in rule order.
type PolicyError struct {
	Violations []string
}

func (e *PolicyError) Error() string {
	return "auth: password does not meet policy: " + strings.Join(e.Violations, "; ")
}

// Service authenticates admins and manages their passwords.
type Service struct {
	accounts AccountStore
	tokens   *Tokens
	rules    func() password.Rules
	cost     int
	now      func() time.Time

	dummyOnce sync.Once
	dummy     []byte
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) { s.cost = cost }
}

// NewService returns a Service. rules is called on every password change so
// reloaded rules apply immediately; nil uses password.DefaultRules.
func NewService(accounts AccountStore, tokens *Tokens, rules func() password.Rules, opts ...ServiceOption) *Service {
	if rules == nil {
		rules = password.DefaultRules
	}
	s := &Service{
		accounts: accounts,
		tokens:   tokens,
		rules:    rules,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Tokens returns the token issuer used by Login.
func (s *Service) Tokens() *Tokens { return s.tokens }

// Login checks email and pw and returns a signed token.
func (s *Service) Login(ctx context.Context, email, pw string) (Token, *Admin, error) {
	a, err := s.accounts.AdminByEmail(ctx, email)
	if errors.Is(err, ErrAdminNotFound) {
		// Spend the same bcrypt work as a real comparison.
		_ = bcrypt.CompareHashAndPassword(s.dummyHash(), []byte(pw))
		return Token{}, nil, ErrInvalidCredentials
	}
	if err != nil {
		return Token{}, nil, fmt.Errorf("auth: lookup admin: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(pw)) != nil {
		return Token{}, nil, ErrInvalidCredentials
	}

	tok, err := s.tokens.Issue(a)
	if err != nil {
		return Token{}, nil, err
	}
	if err := s.accounts.TouchLogin(ctx, a.ID); err != nil {
		slog.Warn("auth: record login failed", "admin", a.ID, "err", err)
	}
	return tok, a, nil
}

// CreateAdmin adds an admin after checking pw against the current rules.
func (s *Service) CreateAdmin(ctx context.Context, email, pw string) (*Admin, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("auth: invalid email %q", email)
	}
	hash, err := s.hash(pw)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	a := &Admin{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.CreateAdmin(ctx, a); err != nil {
		return nil, err
	}
	slog.Info("auth: admin created", "admin", a.ID, "email", a.Email)
	return a, nil
}

// ChangePassword replaces the password of admin id after verifying current.
func (s *Service) ChangePassword(ctx context.Context, id, current, next string) error {
	a, err := s.accounts.AdminByID(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	return s.SetPassword(ctx, id, next)
}

// SetPassword replaces the password of admin id without checking the old one.
func (s *Service) SetPassword(ctx context.Context, id, next string) error {
	hash, err := s.hash(next)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdateAdminPassword(ctx, id, hash); err != nil {
		return err
	}
	slog.Info("auth: admin password changed", "admin", id)
	return nil
}

func (s *Service) hash(pw string) (string, error) {
	res := password.Validate(pw, s.rules())
	if len(pw) > MaxPasswordBytes {
		res.Errors = append(res.Errors, fmt.Sprintf("Password must be at most %d bytes long", MaxPasswordBytes))
		res.Valid = false
	}
	if !res.Valid {
		return "", &PolicyError{Violations: res.Errors}
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), s.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(h), nil
}

// dummyHash is compared against on unknown emails so lookups cost the same
// whether or not the admin exists.
func (s *Service) dummyHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummy, _ = bcrypt.GenerateFromPassword([]byte("sirius-unknown-admin"), s.cost)
	})
	return s.dummy
}
