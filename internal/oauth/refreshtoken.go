// ABOUTME: Refresh-token grant extractor
// ABOUTME: Reuses the refresh token's SSO session; no new refresh token

package oauth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/2389/coven-sso/internal/authn"
	"github.com/2389/coven-sso/internal/cas"
	"github.com/2389/coven-sso/internal/registry"
	"github.com/2389/coven-sso/internal/ticket"
)

// RefreshTokenExtractor handles the refresh_token grant. The refresh token
// is a long-lived registry ticket; it validates repeatedly until it
// expires or its SSO session dies.
type RefreshTokenExtractor struct {
	central  *cas.CentralService
	registry registry.TicketRegistry
	logger   *slog.Logger
}

// NewRefreshTokenExtractor creates a refresh-token extractor.
func NewRefreshTokenExtractor(central *cas.CentralService, reg registry.TicketRegistry) *RefreshTokenExtractor {
	return &RefreshTokenExtractor{
		central:  central,
		registry: reg,
		logger:   slog.Default().With("component", "oauth.refresh"),
	}
}

// Supports implements Extractor.
func (e *RefreshTokenExtractor) Supports(req *TokenRequest) bool {
	return req.GrantType == GrantRefreshToken
}

// Extract implements Extractor: resolve the registered service, look up
// the live refresh token, reuse its SSO session, enforce access. The
// holder never asks for another refresh token.
func (e *RefreshTokenExtractor) Extract(ctx context.Context, req *TokenRequest) (*AccessTokenRequest, error) {
	rs, err := e.central.Services().FindByClientID(req.ClientID)
	if err != nil {
		return nil, err
	}
	if req.RefreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token required", ErrUnsupportedGrant)
	}

	t, err := e.registry.GetTicket(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	rt, ok := t.(*ticket.ServiceTicket)
	if !ok || rt.Kind != ticket.KindRefreshToken {
		return nil, fmt.Errorf("%w: %s", registry.ErrTicketNotFound, req.RefreshToken)
	}

	tgt, err := e.central.GetTicketGrantingTicket(ctx, rt.TGTID)
	if err != nil {
		return nil, err
	}

	svc := &authn.Service{ID: rt.ServiceID}
	auth := tgt.Authentication
	if err := e.central.Enforcer().EnsurePrincipalAccessIsAllowed(svc, rs, auth); err != nil {
		return nil, err
	}

	return &AccessTokenRequest{
		Service:              svc,
		Authentication:       auth,
		RegisteredService:    rs,
		TicketGrantingTicket: tgt,
		GenerateRefreshToken: false,
	}, nil
}
