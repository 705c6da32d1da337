// ABOUTME: RegisteredService metadata and pattern matching
// ABOUTME: Loaded from configuration, read-only to the core

package services

import (
	"fmt"
	"regexp"
)

// RegisteredService describes one consuming application and its policies.
// Instances are externally managed and must not be mutated by the core.
type RegisteredService struct {
	ID       string
	Name     string
	ClientID string
	// ClientSecretHash is a bcrypt hash; raw secrets are never held.
	ClientSecretHash string
	// ServicePattern matches the service URLs this registration covers.
	ServicePattern *regexp.Regexp
	Enabled        bool
	// GenerateRefreshToken marks the service eligible for refresh tokens.
	GenerateRefreshToken bool
	// RequireServiceHeader forces header-based service resolution for
	// OAuth grants targeting this service.
	RequireServiceHeader bool
	// RequiredAttributes are principal attributes that must all be present
	// (with at least one matching value) for access to be allowed.
	RequiredAttributes map[string][]string
	// ReleasedAttributes limits which principal attributes downstream
	// consumers may see. Empty means release everything.
	ReleasedAttributes []string

	// rawPattern holds the uncompiled pattern between file decode and
	// registry construction.
	rawPattern string
}

// MatchesService reports whether the given service identifier is covered
// by this registration's pattern. A registration without a pattern only
// matches its own client id.
func (rs *RegisteredService) MatchesService(serviceID string) bool {
	if rs.ServicePattern == nil {
		return serviceID == rs.ClientID
	}
	return rs.ServicePattern.MatchString(serviceID)
}

// ReleaseAttributes filters an attribute map through the release policy.
func (rs *RegisteredService) ReleaseAttributes(attrs map[string][]string) map[string][]string {
	if len(rs.ReleasedAttributes) == 0 {
		return attrs
	}
	released := make(map[string][]string, len(rs.ReleasedAttributes))
	for _, key := range rs.ReleasedAttributes {
		if values, ok := attrs[key]; ok {
			released[key] = values
		}
	}
	return released
}

// compilePattern compiles a service pattern, anchoring is the author's
// responsibility just as it is for CAS service patterns.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling service pattern %q: %w", pattern, err)
	}
	return re, nil
}
