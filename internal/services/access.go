// ABOUTME: Access-strategy enforcement for principal/service pairs
// ABOUTME: Ordered checks with typed short-circuit failures

package services

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/2389/coven-sso/internal/authn"
)

// UnauthorizedServiceError is returned when the access strategy denies a
// principal/service pair. Reason identifies the failing check so callers
// can map it to a protocol response without string matching.
type UnauthorizedServiceError struct {
	ServiceID string
	Principal string
	Reason    string
}

// Error implements the error interface.
func (e *UnauthorizedServiceError) Error() string {
	return fmt.Sprintf("service %q unauthorized for principal %q: %s",
		e.ServiceID, e.Principal, e.Reason)
}

// Access-denial reasons
const (
	ReasonServiceDisabled   = "service disabled"
	ReasonPatternMismatch   = "service does not match registered pattern"
	ReasonMissingAttributes = "principal missing required attributes"
)

// AccessEnforcer checks whether a principal may obtain a ticket for a
// service. Checks run in order; the first failure short-circuits. There
// are no partial grants.
type AccessEnforcer struct {
	logger *slog.Logger
}

// NewAccessEnforcer creates an access enforcer.
func NewAccessEnforcer() *AccessEnforcer {
	return &AccessEnforcer{logger: slog.Default().With("component", "services.access")}
}

// EnsurePrincipalAccessIsAllowed runs the access strategy for the given
// service, registration, and authentication. A nil registered service or
// disabled registration fails with ErrUnknownService; policy failures
// return *UnauthorizedServiceError.
func (a *AccessEnforcer) EnsurePrincipalAccessIsAllowed(svc *authn.Service, rs *RegisteredService, auth *authn.Authentication) error {
	if rs == nil {
		return fmt.Errorf("%w: no registration", ErrUnknownService)
	}
	if !rs.Enabled {
		a.logger.Warn("access denied", "service", rs.ClientID, "reason", ReasonServiceDisabled)
		return fmt.Errorf("%w: %s", ErrUnknownService, rs.ClientID)
	}

	principal := auth.Principal
	if svc != nil && !rs.MatchesService(svc.ID) {
		a.logger.Warn("access denied",
			"service", svc.ID, "principal", principal.ID, "reason", ReasonPatternMismatch)
		return &UnauthorizedServiceError{
			ServiceID: svc.ID,
			Principal: principal.ID,
			Reason:    ReasonPatternMismatch,
		}
	}

	for key, allowed := range rs.RequiredAttributes {
		values, ok := principal.Attributes[key]
		if !ok || !anyMatch(values, allowed) {
			a.logger.Warn("access denied",
				"service", rs.ClientID, "principal", principal.ID,
				"reason", ReasonMissingAttributes, "attribute", key)
			return &UnauthorizedServiceError{
				ServiceID: rs.ClientID,
				Principal: principal.ID,
				Reason:    ReasonMissingAttributes,
			}
		}
	}

	return nil
}

// anyMatch reports whether any of values appears in allowed.
func anyMatch(values, allowed []string) bool {
	for _, v := range values {
		if slices.Contains(allowed, v) {
			return true
		}
	}
	return false
}
