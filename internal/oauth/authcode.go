// ABOUTME: Authorization-code grant extractor
// ABOUTME: Consumes a one-time code ticket and reuses its SSO session

package oauth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/2389/coven-sso/internal/authn"
	"github.com/2389/coven-sso/internal/cas"
	"github.com/2389/coven-sso/internal/registry"
)

// AuthorizationCodeExtractor handles the authorization_code grant. The
// code is a one-time registry ticket issued during the authorize step;
// consuming it atomically guarantees a code cannot be exchanged twice.
type AuthorizationCodeExtractor struct {
	central  *cas.CentralService
	registry registry.TicketRegistry
	logger   *slog.Logger
}

// NewAuthorizationCodeExtractor creates an authorization-code extractor.
func NewAuthorizationCodeExtractor(central *cas.CentralService, reg registry.TicketRegistry) *AuthorizationCodeExtractor {
	return &AuthorizationCodeExtractor{
		central:  central,
		registry: reg,
		logger:   slog.Default().With("component", "oauth.authcode"),
	}
}

// Supports implements Extractor.
func (e *AuthorizationCodeExtractor) Supports(req *TokenRequest) bool {
	return req.GrantType == GrantAuthorizationCode
}

// Extract implements Extractor: resolve the registered service, consume
// the one-time code, reuse the code's SSO session, enforce access.
func (e *AuthorizationCodeExtractor) Extract(ctx context.Context, req *TokenRequest) (*AccessTokenRequest, error) {
	rs, err := e.central.Services().FindByClientID(req.ClientID)
	if err != nil {
		return nil, err
	}
	if req.Code == "" {
		return nil, fmt.Errorf("%w: authorization code required", ErrUnsupportedGrant)
	}

	code, err := e.registry.ConsumeServiceTicket(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("consumed authorization code", "code", code.Id, "tgt", code.TGTID)

	tgt, err := e.central.GetTicketGrantingTicket(ctx, code.TGTID)
	if err != nil {
		return nil, err
	}

	svc := &authn.Service{ID: code.ServiceID}
	auth := tgt.Authentication
	if err := e.central.Enforcer().EnsurePrincipalAccessIsAllowed(svc, rs, auth); err != nil {
		return nil, err
	}

	return &AccessTokenRequest{
		Service:              svc,
		Authentication:       auth,
		RegisteredService:    rs,
		TicketGrantingTicket: tgt,
		GenerateRefreshToken: rs.GenerateRefreshToken,
	}, nil
}
