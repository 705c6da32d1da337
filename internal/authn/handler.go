// ABOUTME: Handler interface for the ordered authentication chain
// ABOUTME: Handlers claim credential kinds via Supports and validate them

package authn

import (
	"context"
	"errors"
)

// Handler errors
var (
	// ErrBadCredentials is returned when a handler supports a credential
	// but the secret material fails verification.
	ErrBadCredentials = errors.New("bad credentials")

	// ErrUnknownPrincipal is returned when the credential identifier does
	// not map to any known account.
	ErrUnknownPrincipal = errors.New("unknown principal")
)

// Handler validates one kind of credential. Implementations must be safe
// for concurrent use; the same handler instance is shared across requests.
type Handler interface {
	// Name identifies the handler in authentication metadata and failure
	// reasons.
	Name() string

	// Supports reports whether this handler can process the credential.
	// The coordinator only invokes Authenticate on supporting handlers.
	Supports(c Credential) bool

	// Authenticate verifies the credential and returns the handler's view
	// of the principal. A nil error means success.
	Authenticate(ctx context.Context, c Credential) (*HandlerResult, error)
}
