// ABOUTME: Username/password authentication handler backed by bcrypt hashes
// ABOUTME: Uses a dummy compare for unknown users to keep timing constant

package authn

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when the username is unknown so that
// lookups and misses take the same time.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// PasswordHandler authenticates UsernamePasswordCredentials against a
// static map of bcrypt password hashes.
type PasswordHandler struct {
	users  map[string]string // username -> bcrypt hash
	logger *slog.Logger
}

// NewPasswordHandler creates a password handler for the given user map.
func NewPasswordHandler(users map[string]string) *PasswordHandler {
	return &PasswordHandler{
		users:  users,
		logger: slog.Default().With("component", "authn.password"),
	}
}

// Name implements Handler.
func (h *PasswordHandler) Name() string { return "password" }

// Supports reports true for username/password credentials with a username.
func (h *PasswordHandler) Supports(c Credential) bool {
	upc, ok := c.(*UsernamePasswordCredential)
	return ok && upc.Username != ""
}

// Authenticate verifies the password against the stored bcrypt hash.
func (h *PasswordHandler) Authenticate(ctx context.Context, c Credential) (*HandlerResult, error) {
	upc, ok := c.(*UsernamePasswordCredential)
	if !ok {
		return nil, fmt.Errorf("password handler: unsupported credential %T", c)
	}

	hash, exists := h.users[upc.Username]
	if !exists {
		// Constant-time miss
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(upc.Password))
		h.logger.Warn("auth failure", "reason", "unknown user", "credential", upc.ID())
		return nil, fmt.Errorf("%w: %s", ErrUnknownPrincipal, upc.Username)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(upc.Password)); err != nil {
		h.logger.Warn("auth failure", "reason", "password mismatch", "credential", upc.ID())
		return nil, fmt.Errorf("%w: %s", ErrBadCredentials, upc.Username)
	}

	return &HandlerResult{
		HandlerName: h.Name(),
		Principal:   NewPrincipal(upc.Username),
	}, nil
}

// HashPassword produces a bcrypt hash suitable for the handler's user map.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
