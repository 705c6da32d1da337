// ABOUTME: Bearer-token authentication handler delegating to a TokenVerifier
// ABOUTME: The verifier implementation lives in the tokens package

package authn

import (
	"context"
	"fmt"
)

// TokenVerifier validates an opaque token string and returns the subject
// it was issued to.
type TokenVerifier interface {
	Verify(token string) (subject string, err error)
}

// TokenHandler authenticates TokenCredentials using an injected verifier.
type TokenHandler struct {
	verifier TokenVerifier
}

// NewTokenHandler creates a token handler with the given verifier.
func NewTokenHandler(verifier TokenVerifier) *TokenHandler {
	return &TokenHandler{verifier: verifier}
}

// Name implements Handler.
func (h *TokenHandler) Name() string { return "token" }

// Supports reports true for non-empty token credentials.
func (h *TokenHandler) Supports(c Credential) bool {
	tc, ok := c.(*TokenCredential)
	return ok && tc.Token != ""
}

// Authenticate verifies the token and yields a principal for its subject.
func (h *TokenHandler) Authenticate(ctx context.Context, c Credential) (*HandlerResult, error) {
	tc, ok := c.(*TokenCredential)
	if !ok {
		return nil, fmt.Errorf("token handler: unsupported credential %T", c)
	}

	subject, err := h.verifier.Verify(tc.Token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCredentials, err)
	}

	return &HandlerResult{
		HandlerName: h.Name(),
		Principal:   NewPrincipal(subject),
	}, nil
}
