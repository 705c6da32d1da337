// ABOUTME: Client-credentials grant extractor
// ABOUTME: Authenticates the client itself; refresh tokens never issued

package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/2389/coven-sso/internal/authn"
	"github.com/2389/coven-sso/internal/cas"
)

// ClientCredentialsExtractor handles the client_credentials grant. The
// principal is the client itself; per RFC 6749 §4.4.3 no refresh token is
// issued for this grant.
type ClientCredentialsExtractor struct {
	central *cas.CentralService
	logger  *slog.Logger
}

// NewClientCredentialsExtractor creates a client-credentials extractor.
func NewClientCredentialsExtractor(central *cas.CentralService) *ClientCredentialsExtractor {
	return &ClientCredentialsExtractor{
		central: central,
		logger:  slog.Default().With("component", "oauth.clientcreds"),
	}
}

// Supports implements Extractor.
func (e *ClientCredentialsExtractor) Supports(req *TokenRequest) bool {
	return req.GrantType == GrantClientCredentials
}

// Extract implements Extractor: resolve the registered service, verify
// the client secret, build a client-principal authentication, enforce
// access, issue a TGT.
func (e *ClientCredentialsExtractor) Extract(ctx context.Context, req *TokenRequest) (*AccessTokenRequest, error) {
	rs, err := e.central.Services().FindByClientID(req.ClientID)
	if err != nil {
		return nil, err
	}

	if rs.ClientSecretHash == "" {
		return nil, fmt.Errorf("%w: %s has no client secret configured", ErrInvalidClient, req.ClientID)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rs.ClientSecretHash), []byte(req.ClientSecret)); err != nil {
		e.logger.Warn("auth failure", "reason", "client secret mismatch", "client_id", req.ClientID)
		return nil, fmt.Errorf("%w: %s", ErrInvalidClient, req.ClientID)
	}

	svc := &authn.Service{ID: rs.ClientID}
	principal := authn.NewPrincipal(rs.ClientID)
	auth := &authn.Authentication{
		Principal: principal,
		Successes: []authn.HandlerResult{{
			HandlerName: "client-credentials",
			Principal:   principal,
		}},
		AuthenticatedAt: time.Now().UTC(),
	}

	if err := e.central.Enforcer().EnsurePrincipalAccessIsAllowed(svc, rs, auth); err != nil {
		return nil, err
	}

	tgt, err := e.central.CreateTicketGrantingTicket(ctx, &authn.Result{
		Authentication: auth,
		Service:        svc,
	})
	if err != nil {
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
