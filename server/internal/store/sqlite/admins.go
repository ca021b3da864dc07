package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/siriusexpedition/sirius/server/internal/auth"
)

const adminColumns = `id, email, password_hash, created_at, updated_at, last_login_at`

// AdminByEmail returns the admin with the given email, or auth.ErrAdminNotFound.
func (s *Store) AdminByEmail(ctx context.Context, email string) (*auth.Admin, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE email = ?`, normalizeEmail(email))
	a, err := scanAdmin(row)
	if isNoRows(err) {
		return nil, auth.ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: admin by email: %w", err)
	}
	return a, nil
}

// AdminByID returns the admin with the given id, or auth.ErrAdminNotFound.
func (s *Store) AdminByID(ctx context.Context, id string) (*auth.Admin, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = ?`, id)
	a, err := scanAdmin(row)
	if isNoRows(err) {
		return nil, auth.ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: admin by id: %w", err)
	}
	return a, nil
}

// CreateAdmin inserts a. An existing email yields auth.ErrEmailInUse.
func (s *Store) CreateAdmin(ctx context.Context, a *auth.Admin) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO admins (id, email, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`,
		a.ID, normalizeEmail(a.Email), a.PasswordHash, toMillis(a.CreatedAt), toMillis(a.UpdatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return auth.ErrEmailInUse
		}
		return fmt.Errorf("sqlite: create admin: %w", err)
	}
	return nil
}

// UpdateAdminPassword replaces the password hash of admin id.
func (s *Store) UpdateAdminPassword(ctx context.Context, id, hash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE admins SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, toMillis(s.now()), id)
	if err != nil {
		return fmt.Errorf("sqlite: update admin password: %w", err)
	}
	return requireOneRow(res)
}

// TouchLogin records a successful login for admin id.
func (s *Store) TouchLogin(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE admins SET last_login_at = ? WHERE id = ?`, toMillis(s.now()), id)
	if err != nil {
		return fmt.Errorf("sqlite: touch login: %w", err)
	}
	return requireOneRow(res)
}

// CountAdmins returns the number of admin accounts.
func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count admins: %w", err)
	}
	return n, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return auth.ErrAdminNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAdmin(row rowScanner) (*auth.Admin, error) {
	var (
		a                auth.Admin
		created, updated int64
		lastLogin        sql.NullInt64
	)
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &created, &updated, &lastLogin); err != nil {
		return nil, err
	}
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(updated)
	if lastLogin.Valid {
		t := fromMillis(lastLogin.Int64)
		a.LastLoginAt = &t
	}
	return &a, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
