// ABOUTME: Grant types, token request context, and the extractor chain
// ABOUTME: Extractors are polymorphic over grant kinds, selected by Supports

package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/coven-sso/internal/authn"
	"github.com/2389/coven-sso/internal/services"
	"github.com/2389/coven-sso/internal/ticket"
)

// GrantType identifies an OAuth2 grant kind.
type GrantType string

// Grant types
const (
	GrantPassword          GrantType = "password"
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantClientCredentials GrantType = "client_credentials"
	GrantRefreshToken      GrantType = "refresh_token"
)

// OAuth errors
var (
	// ErrMissingProfile is returned when a grant that requires an
	// externally verified user profile is invoked without one.
	ErrMissingProfile = errors.New("credential profile missing")

	// ErrUnsupportedGrant is returned when no extractor claims a request.
	ErrUnsupportedGrant = errors.New("unsupported grant type")

	// ErrInvalidClient is returned when client authentication fails.
	ErrInvalidClient = errors.New("invalid client credentials")
)

// Profile is an externally verified user profile. The collaborator that
// performed the raw credential check produces it; extractors only consume
// it.
type Profile struct {
	ID         string
	Attributes map[string][]string
}

// TokenRequest is the logical content of one inbound grant request. The
// transport (form encoding, headers) is a collaborator's concern.
type TokenRequest struct {
	GrantType    GrantType
	ClientID     string
	ClientSecret string
	Profile      *Profile
	Code         string
	RefreshToken string
	Scope        string
	// ServiceHeader carries the header-resolved service URL for
	// registrations that require header-based service resolution.
	ServiceHeader string
}

// AccessTokenRequest aggregates everything the token-issuance step needs.
// It exists only for the duration of one grant-processing call and is
// never persisted.
type AccessTokenRequest struct {
	Service              *authn.Service
	Authentication       *authn.Authentication
	RegisteredService    *services.RegisteredService
	TicketGrantingTicket *ticket.TicketGrantingTicket
	GenerateRefreshToken bool
}

// Extractor validates an inbound grant request against registered service
// metadata and produces a normalized AccessTokenRequest.
type Extractor interface {
	// Supports reports whether this extractor handles the request,
	// keyed on the grant type.
	Supports(req *TokenRequest) bool

	// Extract runs the grant's validate-and-issue algorithm.
	Extract(ctx context.Context, req *TokenRequest) (*AccessTokenRequest, error)
}

// Chain dispatches a token request to the first extractor that supports
// it. Dispatch is a linear scan over the configured order.
type Chain struct {
	extractors []Extractor
}

// NewChain creates an extractor chain with the given ordered extractors.
func NewChain(extractors ...Extractor) *Chain {
	return &Chain{extractors: extractors}
}

// Extract dispatches the request. An unclaimed request fails with
// ErrUnsupportedGrant.
func (c *Chain) Extract(ctx context.Context, req *TokenRequest) (*AccessTokenRequest, error) {
	for _, e := range c.extractors {
		if e.Supports(req) {
			return e.Extract(ctx, req)
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedGrant, req.GrantType)
}
