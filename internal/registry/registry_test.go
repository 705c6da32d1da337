// ABOUTME: Conformance tests run against every TicketRegistry implementation
// ABOUTME: Lifecycle invariants: uniqueness, lazy expiration, cascade, consume-once

package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-sso/internal/authn"
	"github.com/2389/coven-sso/internal/ticket"
)

// newTestTGT builds a live TGT with the given lifetime.
func newTestTGT(ttl time.Duration) *ticket.TicketGrantingTicket {
	return ticket.NewTicketGrantingTicket(
		ticket.NewID(ticket.KindTicketGranting),
		&authn.Result{
			Authentication: &authn.Authentication{
				Principal:       authn.NewPrincipal("alice"),
				AuthenticatedAt: time.Now().UTC(),
			},
		},
		ticket.HardTimeoutPolicy{TimeToLive: ttl},
	)
}

// newIdleTGT builds a TGT whose idle window is much shorter than its
// maximum lifetime.
func newIdleTGT(idle time.Duration) *ticket.TicketGrantingTicket {
	return ticket.NewTicketGrantingTicket(
		ticket.NewID(ticket.KindTicketGranting),
		&authn.Result{
			Authentication: &authn.Authentication{
				Principal:       authn.NewPrincipal("alice"),
				AuthenticatedAt: time.Now().UTC(),
			},
		},
		ticket.IdleTimeoutPolicy{IdleTimeout: idle, MaxLifetime: time.Hour},
	)
}

// newTestST builds a child service ticket of the given TGT.
func newTestST(tgtID string, kind ticket.Kind, ttl time.Duration) *ticket.ServiceTicket {
	return ticket.NewServiceTicket(ticket.NewID(kind), tgtID, "https://app.example.org",
		kind, ticket.HardTimeoutPolicy{TimeToLive: ttl})
}

// runRegistryConformance exercises the TicketRegistry contract against an
// implementation-provided factory.
func runRegistryConformance(t *testing.T, newRegistry func(t *testing.T) TicketRegistry) {
	ctx := context.Background()

	t.Run("AddAndGet", func(t *testing.T) {
		reg := newRegistry(t)
		tgt := newTestTGT(time.Hour)
		require.NoError(t, reg.AddTicket(ctx, tgt))

		got, err := reg.GetTicket(ctx, tgt.Id)
		require.NoError(t, err)
		gotTGT, ok := got.(*ticket.TicketGrantingTicket)
		require.True(t, ok)
		assert.Equal(t, tgt.Id, gotTGT.Id)
		assert.Equal(t, "alice", gotTGT.Authentication.Principal.ID)
	})

	t.Run("DuplicateIDConflict", func(t *testing.T) {
		reg := newRegistry(t)
		tgt := newTestTGT(time.Hour)
		require.NoError(t, reg.AddTicket(ctx, tgt))

		dup := newTestTGT(time.Hour)
		dup.Id = tgt.Id
		dup.Authentication.Principal = authn.NewPrincipal("mallory")
		err := reg.AddTicket(ctx, dup)
		assert.True(t, errors.Is(err, ErrDuplicateTicket))

		// Pre-existing ticket unmodified
		got, err := reg.GetTicket(ctx, tgt.Id)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.(*ticket.TicketGrantingTicket).Authentication.Principal.ID)
	})

	t.Run("GetUnknownNotFound", func(t *testing.T) {
		reg := newRegistry(t)
		_, err := reg.GetTicket(ctx, "TGT-ghost")
		assert.True(t, errors.Is(err, ErrTicketNotFound))
	})

	t.Run("LazyExpirationOnRead", func(t *testing.T) {
		reg := newRegistry(t)
		tgt := newTestTGT(-time.Second) // already expired, never swept
		require.NoError(t, reg.AddTicket(ctx, tgt))

		_, err := reg.GetTicket(ctx, tgt.Id)
		assert.True(t, errors.Is(err, ErrTicketExpired))
	})

	t.Run("IdleTimeoutExpiresOnRead", func(t *testing.T) {
		reg := newRegistry(t)
		tgt := newIdleTGT(40 * time.Millisecond)
		require.NoError(t, reg.AddTicket(ctx, tgt))

		_, err := reg.GetTicket(ctx, tgt.Id)
		require.NoError(t, err, "fresh session must be readable")

		time.Sleep(100 * time.Millisecond)
		_, err = reg.GetTicket(ctx, tgt.Id)
		assert.True(t, errors.Is(err, ErrTicketExpired),
			"idle session must expire well before its maximum lifetime")
	})

	t.Run("ActivityExtendsIdleWindow", func(t *testing.T) {
		reg := newRegistry(t)
		tgt := newIdleTGT(250 * time.Millisecond)
		require.NoError(t, reg.AddTicket(ctx, tgt))

		// Grants touch the last-used time, keeping the session alive past
		// the original idle deadline.
		for range 3 {
			time.Sleep(90 * time.Millisecond)
			got, err := reg.GetTicket(ctx, tgt.Id)
			require.NoError(t, err)
			session := got.(*ticket.TicketGrantingTicket)
			session.GrantChild(ticket.NewID(ticket.KindService))
			require.NoError(t, reg.UpdateTicket(ctx, session))
		}
	})

	t.Run("ConsumeOnceIsTerminal", func(t *testing.T) {
		reg := newRegistry(t)
		tgt := newTestTGT(time.Hour)
		require.NoError(t, reg.AddTicket(ctx, tgt))
		st := newTestST(tgt.Id, ticket.KindService, time.Minute)
		require.NoError(t, reg.AddTicket(ctx, st))

		first, err := reg.ConsumeServiceTicket(ctx, st.Id)
		require.NoError(t, err)
		assert.True(t, first.Consumed)

		_, err = reg.ConsumeServiceTicket(ctx, st.Id)
		assert.True(t, errors.Is(err, ErrTicketConsumed))

		// Still consumed on every later attempt
		_, err = reg.ConsumeServiceTicket(ctx, st.Id)
		assert.True(t, errors.Is(err, ErrTicketConsumed))
	})

	t.Run("ReusableKindsValidateRepeatedly", func(t *testing.T) {
		reg := newRegistry(t)
		tgt := newTestTGT(time.Hour)
		require.NoError(t, reg.AddTicket(ctx, tgt))
		rt := newTestST(tgt.Id, ticket.KindRefreshToken, time.Hour)
		require.NoError(t, reg.AddTicket(ctx, rt))

		for range 3 {
			got, err := reg.ConsumeServiceTicket(ctx, rt.Id)
			require.NoError(t, err)
			assert.False(t, got.Consumed)
		}
	})

	t.Run("ChildCannotOutliveParent", func(t *testing.T) {
		reg := newRegistry(t)
		tgt := newTestTGT(time.Hour)
		require.NoError(t, reg.AddTicket(ctx, tgt))
		st := newTestST(tgt.Id, ticket.KindService, time.Hour)
		require.NoError(t, reg.AddTicket(ctx, st))

		require.NoError(t, reg.DeleteTicket(ctx, tgt.Id))

		_, err := reg.GetTicket(ctx, st.Id)
		assert.True(t, errors.Is(err, ErrTicketExpired))
		_, err = reg.ConsumeServiceTicket(ctx, st.Id)
		assert.True(t, errors.Is(err, ErrTicketExpired))
	})

	t.Run("CascadeInvalidatesAllChildren", func(t *testing.T) {
		reg := newRegistry(t)
		tgt := newTestTGT(time.Hour)
		require.NoError(t, reg.AddTicket(ctx, tgt))

		children := make([]*ticket.ServiceTicket, 5)
		for i := range children {
			children[i] = newTestST(tgt.Id, ticket.KindService, time.Hour)
			require.NoError(t, reg.AddTicket(ctx, children[i]))
		}

		require.NoError(t, reg.DeleteTicket(ctx, tgt.Id))

		for _, child := range children {
			_, err := reg.ConsumeServiceTicket(ctx, child.Id)
			assert.Error(t, err)
			assert.False(t, errors.Is(err, ErrTicketConsumed),
				"child must be invalid, not merely consumed")
		}
	})

	t.Run("DeleteExpiredSweep", func(t *testing.T) {
		reg := newRegistry(t)
		live := newTestTGT(time.Hour)
		dead := newTestTGT(-time.Second)
		require.NoError(t, reg.AddTicket(ctx, live))
		require.NoError(t, reg.AddTicket(ctx, dead))

		removed, err := reg.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		_, err = reg.GetTicket(ctx, live.Id)
		assert.NoError(t, err)
		_, err = reg.GetTicket(ctx, dead.Id)
		assert.True(t, errors.Is(err, ErrTicketNotFound))
	})

	t.Run("UpdateUnknownNotFound", func(t *testing.T) {
		reg := newRegistry(t)
		err := reg.UpdateTicket(ctx, newTestTGT(time.Hour))
		assert.True(t, errors.Is(err, ErrTicketNotFound))
	})
}
