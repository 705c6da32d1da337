// ABOUTME: Tests for the in-memory TicketRegistry
// ABOUTME: Conformance suite plus the concurrent no-double-spend property

package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-sso/internal/ticket"
)

func TestMemoryRegistry_Conformance(t *testing.T) {
	runRegistryConformance(t, func(t *testing.T) TicketRegistry {
		return NewMemoryRegistry()
	})
}

func TestMemoryRegistry_ConcurrentConsumeSingleWinner(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	tgt := newTestTGT(time.Hour)
	require.NoError(t, reg.AddTicket(ctx, tgt))
	st := newTestST(tgt.Id, ticket.KindService, time.Minute)
	require.NoError(t, reg.AddTicket(ctx, st))

	const attempts = 50
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  int
		consumed int
	)

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.ConsumeServiceTicket(ctx, st.Id)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, ErrTicketConsumed):
				consumed++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners, "exactly one concurrent validation may win")
	assert.Equal(t, attempts-1, consumed)
}

func TestMemoryRegistry_GetReturnsIsolatedCopy(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	tgt := newTestTGT(time.Hour)
	require.NoError(t, reg.AddTicket(ctx, tgt))

	first, err := reg.GetTicket(ctx, tgt.Id)
	require.NoError(t, err)
	second, err := reg.GetTicket(ctx, tgt.Id)
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	// Mutating a returned ticket must not leak into the registry.
	first.(*ticket.TicketGrantingTicket).GrantChild("ST-rogue")
	stored, err := reg.GetTicket(ctx, tgt.Id)
	require.NoError(t, err)
	assert.Empty(t, stored.(*ticket.TicketGrantingTicket).ChildIDs)

	// Nor must mutating the caller's original after AddTicket.
	tgt.GrantChild("ST-rogue-2")
	stored, err = reg.GetTicket(ctx, tgt.Id)
	require.NoError(t, err)
	assert.Empty(t, stored.(*ticket.TicketGrantingTicket).ChildIDs)
}

func TestMemoryRegistry_ConcurrentGrantsOnOneSession(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	tgt := newTestTGT(time.Hour)
	require.NoError(t, reg.AddTicket(ctx, tgt))

	// Each grant follows the production step sequence: read the session,
	// record a child on the returned ticket, write it back. Concurrent
	// validations read the session in parallel.
	const grants = 25
	var wg sync.WaitGroup
	for range grants {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := reg.GetTicket(ctx, tgt.Id)
			if err != nil {
				t.Error(err)
				return
			}
			session := got.(*ticket.TicketGrantingTicket)
			st := newTestST(tgt.Id, ticket.KindService, time.Hour)
			if err := reg.AddTicket(ctx, st); err != nil {
				t.Error(err)
				return
			}
			session.GrantChild(st.Id)
			if err := reg.UpdateTicket(ctx, session); err != nil {
				t.Error(err)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := reg.GetTicket(ctx, tgt.Id); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, grants+1, reg.Count())
}

func TestMemoryRegistry_CountTracksFailedGrants(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()
	assert.Equal(t, 0, reg.Count())

	tgt := newTestTGT(time.Hour)
	require.NoError(t, reg.AddTicket(ctx, tgt))
	assert.Equal(t, 1, reg.Count())

	dup := newTestTGT(time.Hour)
	dup.Id = tgt.Id
	require.Error(t, reg.AddTicket(ctx, dup))
	assert.Equal(t, 1, reg.Count())
}

func TestMemoryRegistry_SweepRemovesOrphans(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	tgt := newTestTGT(time.Hour)
	require.NoError(t, reg.AddTicket(ctx, tgt))
	st := newTestST(tgt.Id, ticket.KindService, time.Hour)
	require.NoError(t, reg.AddTicket(ctx, st))

	require.NoError(t, reg.DeleteTicket(ctx, tgt.Id))

	removed, err := reg.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, reg.Count())
}
