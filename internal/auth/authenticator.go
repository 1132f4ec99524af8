package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"os"
	"strings"
)

// Authenticator verifies credentials for the web login and for device
// provisioning. It consults the live user list first, then an optional
// legacy single-password file kept for pre-migration installs where the
// admin credential lived in a plaintext file.
type Authenticator struct {
	users      UserRepository
	limiter    *RateLimiter
	legacyPath string
	logger     *slog.Logger
}

// NewAuthenticator creates an authenticator. legacyPath may be empty to
// disable the legacy fallback.
func NewAuthenticator(users UserRepository, limiter *RateLimiter, legacyPath string, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		users:      users,
		limiter:    limiter,
		legacyPath: legacyPath,
		logger:     logger,
	}
}

// Login authenticates a username/password pair from the given source
// address. Failures count against the address's rate-limit budget; an
// address over budget is rejected before credentials are checked, so a
// blocked attacker learns nothing about credential validity.
func (a *Authenticator) Login(ctx context.Context, username, password, sourceAddr string) (*User, error) {
	if a.limiter != nil && a.limiter.Blocked(sourceAddr) {
		a.logger.Warn("login blocked by rate limit", "username", username, "source", sourceAddr)
		return nil, ErrTooManyAttempts
	}

	user, err := a.authenticate(ctx, username, password)
	if err != nil {
		if a.limiter != nil {
			a.limiter.RecordFailure(sourceAddr)
		}
		a.logger.Warn("login failed", "username", username, "source", sourceAddr)
		return nil, err
	}

	if a.limiter != nil {
		a.limiter.RecordSuccess(sourceAddr)
	}
	a.logger.Info("login succeeded", "username", username, "role", string(user.Role))
	return user, nil
}

func (a *Authenticator) authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := a.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if !user.IsActive {
			return nil, ErrUserInactive
		}
		ok, err := VerifyPassword(password, user.PasswordHash)
		if err == nil && ok {
			return user, nil
		}

	case !errors.Is(err, ErrUserNotFound):
		return nil, err
	}

	// Migration path: installs that predate user accounts kept a single
	// admin password in a plaintext file.
	if username == "admin" && a.legacyMatch(password) {
		return &User{
			Username: "admin",
			Role:     RoleAdmin,
			Company:  "all",
			IsActive: true,
		}, nil
	}

	return nil, ErrInvalidCredentials
}

// VerifyAdminPassword reports whether the given password belongs to any
// active admin account, falling back to the legacy password file. Used by
// device provisioning, which proves itself with an admin credential rather
// than a session.
func (a *Authenticator) VerifyAdminPassword(ctx context.Context, password string) bool {
	if password == "" {
		return false
	}

	users, err := a.users.List(ctx)
	if err != nil {
		a.logger.Error("admin verification failed", "error", err)
		return false
	}

	for i := range users {
		u := &users[i]
		if u.Role != RoleAdmin || !u.IsActive {
			continue
		}
		if ok, err := VerifyPassword(password, u.PasswordHash); err == nil && ok {
			return true
		}
	}

	return a.legacyMatch(password)
}

// legacyMatch compares the password against the legacy single-password
// file, if configured and present.
func (a *Authenticator) legacyMatch(password string) bool {
	if a.legacyPath == "" {
		return false
	}
	content, err := os.ReadFile(a.legacyPath)
	if err != nil {
		return false
	}
	stored := strings.TrimSpace(string(content))
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}
