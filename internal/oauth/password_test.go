// ABOUTME: Tests for the password-grant extractor
// ABOUTME: Covers denial-before-issuance and the service-binding asymmetry

package oauth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-sso/internal/services"
)

func TestPasswordGrant_UnknownClient(t *testing.T) {
	f := newGrantFixture(t)
	extractor := NewPasswordGrantExtractor(f.central, f.builder)

	_, err := extractor.Extract(context.Background(), &TokenRequest{
		GrantType: GrantPassword,
		ClientID:  "ghost",
		Profile:   testProfile(),
	})

	assert.True(t, errors.Is(err, services.ErrUnknownService))
	assert.Equal(t, 0, f.reg.Count(), "no ticket may be created for an unknown client")
}

func TestPasswordGrant_MissingProfile(t *testing.T) {
	f := newGrantFixture(t)
	extractor := NewPasswordGrantExtractor(f.central, f.builder)

	_, err := extractor.Extract(context.Background(), &TokenRequest{
		GrantType: GrantPassword,
		ClientID:  "web-app",
	})

	assert.True(t, errors.Is(err, ErrMissingProfile))
	assert.Equal(t, 0, f.reg.Count())
}

func TestPasswordGrant_AccessDenied(t *testing.T) {
	f := newGrantFixture(t)
	extractor := NewPasswordGrantExtractor(f.central, f.builder)

	// secure-app requires the admins group, which alice lacks
	_, err := extractor.Extract(context.Background(), &TokenRequest{
		GrantType: GrantPassword,
		ClientID:  "secure-app",
		Profile:   testProfile(),
	})

	var unauthorized *services.UnauthorizedServiceError
	require.True(t, errors.As(err, &unauthorized))
	assert.Equal(t, 0, f.reg.Count(), "denial must leave no session behind")
}

func TestPasswordGrant_DisabledClient(t *testing.T) {
	f := newGrantFixture(t)
	extractor := NewPasswordGrantExtractor(f.central, f.builder)

	_, err := extractor.Extract(context.Background(), &TokenRequest{
		GrantType: GrantPassword,
		ClientID:  "legacy-app",
		Profile:   testProfile(),
	})

	assert.True(t, errors.Is(err, services.ErrUnknownService))
	assert.Equal(t, 0, f.reg.Count())
}

func TestPasswordGrant_Success(t *testing.T) {
	ctx := context.Background()
	f := newGrantFixture(t)
	extractor := NewPasswordGrantExtractor(f.central, f.builder)

	holder, err := extractor.Extract(ctx, &TokenRequest{
		GrantType: GrantPassword,
		ClientID:  "web-app",
		Profile:   testProfile(),
	})
	require.NoError(t, err)

	assert.Equal(t, "web-app", holder.Service.ID)
	assert.Equal(t, "alice", holder.Authentication.Principal.ID)
	assert.Equal(t, []string{"staff"}, holder.Authentication.Principal.Attributes["groups"])
	assert.True(t, holder.GenerateRefreshToken,
		"refresh eligibility must mirror the registration exactly")

	require.NotNil(t, holder.TicketGrantingTicket)
	assert.Nil(t, holder.TicketGrantingTicket.Service,
		"no service binding without header-based resolution")

	// The session is live in the registry
	tgt, err := f.central.GetTicketGrantingTicket(ctx, holder.TicketGrantingTicket.Id)
	require.NoError(t, err)
	assert.Equal(t, "alice", tgt.Authentication.Principal.ID)
}

func TestPasswordGrant_ServiceHeaderRequired(t *testing.T) {
	f := newGrantFixture(t)
	extractor := NewPasswordGrantExtractor(f.central, f.builder)

	_, err := extractor.Extract(context.Background(), &TokenRequest{
		GrantType: GrantPassword,
		ClientID:  "portal-app",
		Profile:   testProfile(),
	})

	assert.True(t, errors.Is(err, services.ErrUnknownService))
	assert.Equal(t, 0, f.reg.Count())
}

func TestPasswordGrant_ServiceHeaderBindsSession(t *testing.T) {
	f := newGrantFixture(t)
	extractor := NewPasswordGrantExtractor(f.central, f.builder)

	holder, err := extractor.Extract(context.Background(), &TokenRequest{
		GrantType:     GrantPassword,
		ClientID:      "portal-app",
		Profile:       testProfile(),
		ServiceHeader: "https://portal.example.org/cb",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://portal.example.org/cb", holder.Service.ID)
	require.NotNil(t, holder.TicketGrantingTicket.Service)
	assert.Equal(t, "https://portal.example.org/cb", holder.TicketGrantingTicket.Service.ID)
	assert.False(t, holder.GenerateRefreshToken)
}

func TestPasswordGrant_ServiceHeaderPatternMismatch(t *testing.T) {
	f := newGrantFixture(t)
	extractor := NewPasswordGrantExtractor(f.central, f.builder)

	_, err := extractor.Extract(context.Background(), &TokenRequest{
		GrantType:     GrantPassword,
		ClientID:      "portal-app",
		Profile:       testProfile(),
		ServiceHeader: "https://evil.example.org/cb",
	})

	var unauthorized *services.UnauthorizedServiceError
	require.True(t, errors.As(err, &unauthorized))
	assert.Equal(t, 0, f.reg.Count())
}
