// ABOUTME: Tests for the SQLite TicketRegistry
// ABOUTME: Conformance suite plus persistence across reopen

package registry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-sso/internal/ticket"
)

func newTestSQLiteRegistry(t *testing.T) TicketRegistry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tickets.db")
	reg, err := NewSQLiteRegistry(path)
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestSQLiteRegistry_Conformance(t *testing.T) {
	runRegistryConformance(t, newTestSQLiteRegistry)
}

func TestSQLiteRegistry_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tickets.db")

	reg, err := NewSQLiteRegistry(path)
	require.NoError(t, err)

	tgt := newTestTGT(time.Hour)
	tgt.Authentication.Principal = tgt.Authentication.Principal.WithAttributes(
		map[string][]string{"groups": {"staff"}})
	require.NoError(t, reg.AddTicket(ctx, tgt))
	st := newTestST(tgt.Id, ticket.KindRefreshToken, time.Hour)
	require.NoError(t, reg.AddTicket(ctx, st))
	require.NoError(t, reg.Close())

	reopened, err := NewSQLiteRegistry(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetTicket(ctx, tgt.Id)
	require.NoError(t, err)
	gotTGT := got.(*ticket.TicketGrantingTicket)
	assert.Equal(t, "alice", gotTGT.Authentication.Principal.ID)
	assert.Equal(t, []string{"staff"}, gotTGT.Authentication.Principal.Attributes["groups"])

	gotChild, err := reopened.GetTicket(ctx, st.Id)
	require.NoError(t, err)
	assert.Equal(t, ticket.KindRefreshToken, gotChild.(*ticket.ServiceTicket).Kind)
}

func TestSQLiteRegistry_ConsumedSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tickets.db")

	reg, err := NewSQLiteRegistry(path)
	require.NoError(t, err)

	tgt := newTestTGT(time.Hour)
	require.NoError(t, reg.AddTicket(ctx, tgt))
	st := newTestST(tgt.Id, ticket.KindService, time.Hour)
	require.NoError(t, reg.AddTicket(ctx, st))

	_, err = reg.ConsumeServiceTicket(ctx, st.Id)
	require.NoError(t, err)
	require.NoError(t, reg.Close())

	reopened, err := NewSQLiteRegistry(path)
	require.NoError(t, err)
	defer reopened.Close()

	_, err = reopened.ConsumeServiceTicket(ctx, st.Id)
	assert.True(t, errors.Is(err, ErrTicketConsumed))
}

func TestSQLiteRegistry_DeleteUnknownNotFound(t *testing.T) {
	reg := newTestSQLiteRegistry(t)
	err := reg.DeleteTicket(context.Background(), "TGT-ghost")
	assert.True(t, errors.Is(err, ErrTicketNotFound))
}
