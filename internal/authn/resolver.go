// ABOUTME: Principal resolvers turning handler results into attributed principals
// ABOUTME: Includes the echoing resolver and an attribute-repository resolver

package authn

import (
	"fmt"
	"log/slog"
)

// PrincipalResolver turns a raw credential plus an already-authenticated
// handler result into a fully attributed Principal. Resolve must be
// idempotent for the same inputs. The coordinator only invokes a resolver
// whose Supports returns true; calling an unsupported resolver is a caller
// error. Implementations are shared across concurrent requests.
type PrincipalResolver interface {
	// Supports reports whether this resolver can handle the credential.
	Supports(c Credential) bool

	// Resolve produces the attributed principal. The principal argument is
	// the handler's view of the identity; handler is the handler that
	// authenticated the credential.
	Resolve(c Credential, principal *Principal, handler Handler) (*Principal, error)
}

// AttributeRepository looks up released attributes for a principal id.
type AttributeRepository interface {
	Attributes(id string) (map[string][]string, error)
}

// EchoingResolver echoes the already-authenticated principal back
// unchanged. It has no attribute source and performs no repository lookup;
// it supports any credential with a non-blank identifier.
type EchoingResolver struct {
	logger *slog.Logger
}

// NewEchoingResolver creates an echoing resolver.
func NewEchoingResolver() *EchoingResolver {
	return &EchoingResolver{logger: slog.Default().With("component", "authn.resolver")}
}

// Supports reports true for credentials with a non-blank identifier.
func (r *EchoingResolver) Supports(c Credential) bool {
	return c != nil && c.ID() != ""
}

// Resolve returns the principal unchanged.
func (r *EchoingResolver) Resolve(c Credential, principal *Principal, handler Handler) (*Principal, error) {
	r.logger.Debug("echoing back authenticated principal", "principal", principal.ID)
	return principal, nil
}

// AttributeRepository reports that the echoing resolver has no attribute
// source. The second return value is false by contract.
func (r *EchoingResolver) AttributeRepository() (AttributeRepository, bool) {
	return nil, false
}

// AttributeResolver overlays attributes from an attribute repository onto
// the handler's principal. A principal missing from the repository resolves
// with an empty attribute overlay rather than an error.
type AttributeResolver struct {
	repo   AttributeRepository
	logger *slog.Logger
}

// NewAttributeResolver creates a resolver backed by the given repository.
func NewAttributeResolver(repo AttributeRepository) *AttributeResolver {
	return &AttributeResolver{
		repo:   repo,
		logger: slog.Default().With("component", "authn.resolver"),
	}
}

// Supports reports true for credentials with a non-blank identifier.
func (r *AttributeResolver) Supports(c Credential) bool {
	return c != nil && c.ID() != ""
}

// Resolve overlays repository attributes onto the principal.
func (r *AttributeResolver) Resolve(c Credential, principal *Principal, handler Handler) (*Principal, error) {
	attrs, err := r.repo.Attributes(principal.ID)
	if err != nil {
		return nil, fmt.Errorf("resolving attributes for %s: %w", principal.ID, err)
	}
	if len(attrs) == 0 {
		return principal, nil
	}
	return principal.WithAttributes(attrs), nil
}

// AttributeRepository returns the resolver's attribute source.
func (r *AttributeResolver) AttributeRepository() (AttributeRepository, bool) {
	return r.repo, true
}

// MapAttributeRepository is an in-memory AttributeRepository backed by a
// plain map, used for config-fed attributes and tests.
type MapAttributeRepository map[string]map[string][]string

// Attributes returns the stored attributes for id, or nil when absent.
func (m MapAttributeRepository) Attributes(id string) (map[string][]string, error) {
	return m[id], nil
}
