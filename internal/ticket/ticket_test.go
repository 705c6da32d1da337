// ABOUTME: Tests for ticket types and id generation
// ABOUTME: Covers prefixes, uniqueness, single-use kinds, and revocation

package ticket

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-sso/internal/authn"
)

func testResult() *authn.Result {
	return &authn.Result{
		Authentication: &authn.Authentication{
			Principal:       authn.NewPrincipal("alice"),
			AuthenticatedAt: time.Now().UTC(),
		},
	}
}

func TestNewID_PrefixAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		id := NewID(KindTicketGranting)
		assert.True(t, strings.HasPrefix(id, "TGT-"))
		require.False(t, seen[id], "duplicate id generated: %s", id)
		seen[id] = true
	}

	assert.True(t, strings.HasPrefix(NewID(KindService), "ST-"))
	assert.True(t, strings.HasPrefix(NewID(KindOAuthCode), "OC-"))
	assert.True(t, strings.HasPrefix(NewID(KindAccessToken), "AT-"))
	assert.True(t, strings.HasPrefix(NewID(KindRefreshToken), "RT-"))
}

func TestTicketGrantingTicket_Expiry(t *testing.T) {
	tgt := NewTicketGrantingTicket(NewID(KindTicketGranting), testResult(),
		HardTimeoutPolicy{TimeToLive: time.Hour})

	now := time.Now().UTC()
	assert.False(t, tgt.IsExpired(now))
	assert.True(t, tgt.IsExpired(now.Add(2*time.Hour)))
}

func TestTicketGrantingTicket_RevokedIsTerminal(t *testing.T) {
	tgt := NewTicketGrantingTicket(NewID(KindTicketGranting), testResult(),
		NeverExpires{})

	tgt.Revoked = true
	assert.True(t, tgt.IsExpired(time.Now().UTC()))
}

func TestTicketGrantingTicket_GrantChild(t *testing.T) {
	tgt := NewTicketGrantingTicket(NewID(KindTicketGranting), testResult(),
		HardTimeoutPolicy{TimeToLive: time.Hour})

	tgt.GrantChild("ST-child-1")
	tgt.GrantChild("ST-child-2")
	assert.Equal(t, []string{"ST-child-1", "ST-child-2"}, tgt.ChildIDs)
}

func TestServiceTicket_SingleUseKinds(t *testing.T) {
	mk := func(kind Kind) *ServiceTicket {
		return NewServiceTicket(NewID(kind), "TGT-parent", "app", kind,
			HardTimeoutPolicy{TimeToLive: time.Minute})
	}

	assert.True(t, mk(KindService).SingleUse())
	assert.True(t, mk(KindOAuthCode).SingleUse())
	assert.False(t, mk(KindAccessToken).SingleUse())
	assert.False(t, mk(KindRefreshToken).SingleUse())
}
