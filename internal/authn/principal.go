// ABOUTME: Principal and Authentication value types
// ABOUTME: Both are treated as immutable once constructed

package authn

import (
	"fmt"
	"time"
)

// Principal is a resolved identity plus its released attributes.
// Equality is by ID; the attribute map is multi-valued and insertion order
// of keys is irrelevant. Callers must not mutate a Principal after
// resolution; Merge and WithAttributes return copies.
type Principal struct {
	ID         string
	Attributes map[string][]string
}

// NewPrincipal creates a principal with an empty attribute map.
func NewPrincipal(id string) *Principal {
	return &Principal{ID: id, Attributes: map[string][]string{}}
}

// WithAttributes returns a copy of p carrying the given attributes.
func (p *Principal) WithAttributes(attrs map[string][]string) *Principal {
	np := NewPrincipal(p.ID)
	for k, v := range p.Attributes {
		np.Attributes[k] = append([]string(nil), v...)
	}
	for k, v := range attrs {
		np.Attributes[k] = append([]string(nil), v...)
	}
	return np
}

// Merge overlays other's attributes onto p and returns the result as a new
// principal. Same-key collisions resolve in favor of other (last wins).
// Principals merge by identifier only; a mismatched ID is an error, never a
// silent unification.
func (p *Principal) Merge(other *Principal) (*Principal, error) {
	if other == nil {
		return p, nil
	}
	if other.ID != p.ID {
		return nil, fmt.Errorf("cannot merge principal %q into %q", other.ID, p.ID)
	}
	return p.WithAttributes(other.Attributes), nil
}

// Equal reports whether two principals represent the same identity.
func (p *Principal) Equal(other *Principal) bool {
	return other != nil && p.ID == other.ID
}

// HandlerResult records a single handler's successful authentication.
type HandlerResult struct {
	HandlerName string
	Principal   *Principal
	Warnings    []string
}

// Authentication is the verified outcome of one chain run: the merged
// principal, the ordered successful-handler metadata, and the time of
// authentication. A new credential submission produces a new
// Authentication; existing ones are never patched.
type Authentication struct {
	Principal       *Principal
	Successes       []HandlerResult
	Warnings        []string
	AuthenticatedAt time.Time
}

// Result pairs an Authentication with the service it was produced for.
// Service may be nil when the authentication is not bound to any service.
type Result struct {
	Authentication *Authentication
	Service        *Service
}

// Service is the logical target a ticket is scoped to, identified by its
// resolved URL or client-derived identifier.
type Service struct {
	ID string
}
