// ABOUTME: AuthenticationBuilder constructing authentications from OAuth profiles
// ABOUTME: Resolves the logical target service, optionally from request headers

package oauth

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/coven-sso/internal/authn"
	"github.com/2389/coven-sso/internal/services"
)

// AuthenticationBuilder builds authn values from externally verified
// OAuth profiles.
type AuthenticationBuilder struct {
	logger *slog.Logger
}

// NewAuthenticationBuilder creates a builder.
func NewAuthenticationBuilder() *AuthenticationBuilder {
	return &AuthenticationBuilder{logger: slog.Default().With("component", "oauth.builder")}
}

// BuildService resolves the logical target service for a grant. When the
// registration requires header-based service resolution the service comes
// from the request's service header; otherwise it derives from the client
// id.
func (b *AuthenticationBuilder) BuildService(rs *services.RegisteredService, req *TokenRequest, requireServiceHeader bool) (*authn.Service, error) {
	if requireServiceHeader {
		if req.ServiceHeader == "" {
			return nil, fmt.Errorf("%w: service header required by %s",
				services.ErrUnknownService, rs.ClientID)
		}
		b.logger.Debug("resolved service from request header", "service", req.ServiceHeader)
		return &authn.Service{ID: req.ServiceHeader}, nil
	}
	return &authn.Service{ID: rs.ClientID}, nil
}

// Build constructs an Authentication from a verified profile. The released
// attributes are filtered through the registration's release policy.
func (b *AuthenticationBuilder) Build(profile *Profile, rs *services.RegisteredService, svc *authn.Service) *authn.Authentication {
	principal := authn.NewPrincipal(profile.ID).WithAttributes(rs.ReleaseAttributes(profile.Attributes))
	return &authn.Authentication{
		Principal: principal,
		Successes: []authn.HandlerResult{{
			HandlerName: "oauth-profile",
			Principal:   principal,
		}},
		AuthenticatedAt: time.Now().UTC(),
	}
}
