// ABOUTME: Password-grant extractor (resource owner password credentials)
// ABOUTME: Consumes an externally verified profile, never raw passwords

package oauth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/2389/coven-sso/internal/authn"
	"github.com/2389/coven-sso/internal/cas"
)

// PasswordGrantExtractor handles the resource-owner password grant. The
// raw password check happens in a collaborator before extraction; the
// extractor consumes its verified Profile.
type PasswordGrantExtractor struct {
	central *cas.CentralService
	builder *AuthenticationBuilder
	logger  *slog.Logger
}

// NewPasswordGrantExtractor creates a password-grant extractor.
func NewPasswordGrantExtractor(central *cas.CentralService, builder *AuthenticationBuilder) *PasswordGrantExtractor {
	return &PasswordGrantExtractor{
		central: central,
		builder: builder,
		logger:  slog.Default().With("component", "oauth.password"),
	}
}

// Supports implements Extractor.
func (e *PasswordGrantExtractor) Supports(req *TokenRequest) bool {
	return req.GrantType == GrantPassword
}

// Extract implements Extractor. Steps: resolve the registered service by
// client id, require the verified profile, build the target service
// (header-derived when the registration demands it), build an
// authentication, enforce the access strategy, issue a TGT, and assemble
// the holder.
//
// The service is bound to the TGT's authentication result only when
// header-based resolution was required; otherwise the TGT carries no
// service binding. This mirrors the upstream behavior exactly and is
// load-bearing for downstream ticket-service binding.
func (e *PasswordGrantExtractor) Extract(ctx context.Context, req *TokenRequest) (*AccessTokenRequest, error) {
	e.logger.Debug("locating registered service", "client_id", req.ClientID)
	rs, err := e.central.Services().FindByClientID(req.ClientID)
	if err != nil {
		return nil, err
	}

	if req.Profile == nil {
		return nil, fmt.Errorf("%w: password grant for %s", ErrMissingProfile, req.ClientID)
	}

	requireServiceHeader := rs.RequireServiceHeader
	svc, err := e.builder.BuildService(rs, req, requireServiceHeader)
	if err != nil {
		return nil, err
	}

	auth := e.builder.Build(req.Profile, rs, svc)
	if err := e.central.Enforcer().EnsurePrincipalAccessIsAllowed(svc, rs, auth); err != nil {
		return nil, err
	}

	generateRefreshToken := rs.GenerateRefreshToken

	var boundService *authn.Service
	if requireServiceHeader {
		boundService = svc
	}
	tgt, err := e.central.CreateTicketGrantingTicket(ctx, &authn.Result{
		Authentication: auth,
		Service:        boundService,
	})
	if err != nil {
		return nil, err
	}

	return &AccessTokenRequest{
		Service:              svc,
		Authentication:       auth,
		RegisteredService:    rs,
		TicketGrantingTicket: tgt,
		GenerateRefreshToken: generateRefreshToken,
	}, nil
}
