package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	// ErrAdminNotFound is returned by AccountStore lookups that match nothing.
	ErrAdminNotFound = errors.New("auth: admin not found")

	// ErrEmailInUse is returned when creating an admin whose email exists.
	ErrEmailInUse = errors.New("auth: email already in use")
)

// Admin is a site administrator account.
type Admin struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// AccountStore persists admin accounts. Emails are matched case-insensitively.
type AccountStore interface {
	AdminByEmail(ctx context.Context, email string) (*Admin, error)
	AdminByID(ctx context.Context, id string) (*Admin, error)
	CreateAdmin(ctx context.Context, a *Admin) error
	UpdateAdminPassword(ctx context.Context, id, hash string) error
	TouchLogin(ctx context.Context, id string) error
}

// MemoryAccounts is an in-process AccountStore used with the memory
// storage backend and in tests.
type MemoryAccounts struct {
	mu     sync.RWMutex
	byID   map[string]*Admin
	emails map[string]string
	now    func() time.Time
}

// NewMemoryAccounts returns an empty MemoryAccounts.
func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{
		byID:   make(map[string]*Admin),
		emails: make(map[string]string),
		now:    time.Now,
	}
}

func (m *MemoryAccounts) AdminByEmail(ctx context.Context, email string) (*Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[normalizeEmail(email)]
	if !ok {
		return nil, ErrAdminNotFound
	}
	return m.copyOf(id), nil
}

func (m *MemoryAccounts) AdminByID(ctx context.Context, id string) (*Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.byID[id]; !ok {
		return nil, ErrAdminNotFound
	}
	return m.copyOf(id), nil
}

func (m *MemoryAccounts) CreateAdmin(ctx context.Context, a *Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := normalizeEmail(a.Email)
	if _, ok := m.emails[email]; ok {
		return ErrEmailInUse
	}
	cp := *a
	cp.Email = email
	m.byID[a.ID] = &cp
	m.emails[email] = a.ID
	return nil
}

func (m *MemoryAccounts) UpdateAdminPassword(ctx context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return ErrAdminNotFound
	}
	a.PasswordHash = hash
	a.UpdatedAt = m.now().UTC()
	return nil
}

func (m *MemoryAccounts) TouchLogin(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return ErrAdminNotFound
	}
	t := m.now().UTC()
	a.LastLoginAt = &t
	return nil
}

// copyOf must be called with m.mu held.
func (m *MemoryAccounts) copyOf(id string) *Admin {
	cp := *m.byID[id]
	if cp.LastLoginAt != nil {
		t := *cp.LastLoginAt
		cp.LastLoginAt = &t
	}
	return &cp
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
