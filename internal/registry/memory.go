// ABOUTME: In-memory TicketRegistry for tests and single-process deployments
// ABOUTME: A single mutex guards the map; tickets cross the boundary as copies

package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/2389/coven-sso/internal/ticket"
)

// MemoryRegistry is a mutex-guarded in-memory TicketRegistry.
type MemoryRegistry struct {
	mu      sync.Mutex
	tickets map[string]ticket.Ticket
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{tickets: make(map[string]ticket.Ticket)}
}

var _ TicketRegistry = (*MemoryRegistry)(nil)

// cloneTicket copies a ticket so the stored value is never shared with
// callers. Mutating a returned ticket outside the registry lock must not
// race other requests reading the same ticket.
func cloneTicket(t ticket.Ticket) ticket.Ticket {
	switch tk := t.(type) {
	case *ticket.TicketGrantingTicket:
		return tk.Clone()
	case *ticket.ServiceTicket:
		return tk.Clone()
	default:
		return t
	}
}

// AddTicket implements TicketRegistry.
func (r *MemoryRegistry) AddTicket(ctx context.Context, t ticket.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tickets[t.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTicket, t.ID())
	}
	r.tickets[t.ID()] = cloneTicket(t)
	return nil
}

// GetTicket implements TicketRegistry.
func (r *MemoryRegistry) GetTicket(ctx context.Context, id string) (ticket.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.getLocked(id, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return cloneTicket(t), nil
}

// getLocked resolves a ticket applying lazy expiration, including the
// parent-liveness check for child tickets. Must be called with mu held.
func (r *MemoryRegistry) getLocked(id string, now time.Time) (ticket.Ticket, error) {
	t, ok := r.tickets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTicketNotFound, id)
	}
	if t.IsExpired(now) {
		return nil, fmt.Errorf("%w: %s", ErrTicketExpired, id)
	}

	// A child ticket cannot outlive its parent.
	if st, ok := t.(*ticket.ServiceTicket); ok && st.TGTID != "" {
		parent, ok := r.tickets[st.TGTID]
		if !ok || parent.IsExpired(now) {
			return nil, fmt.Errorf("%w: %s (parent %s dead)", ErrTicketExpired, id, st.TGTID)
		}
	}
	return t, nil
}

// UpdateTicket implements TicketRegistry.
func (r *MemoryRegistry) UpdateTicket(ctx context.Context, t ticket.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tickets[t.ID()]; !exists {
		return fmt.Errorf("%w: %s", ErrTicketNotFound, t.ID())
	}
	r.tickets[t.ID()] = cloneTicket(t)
	return nil
}

// DeleteTicket implements TicketRegistry. Deleting a TGT removes it
// immediately; its children become unvalidatable through the
// parent-liveness check and are physically removed by the next sweep.
func (r *MemoryRegistry) DeleteTicket(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tickets[id]; !exists {
		return fmt.Errorf("%w: %s", ErrTicketNotFound, id)
	}
	delete(r.tickets, id)
	return nil
}

// ConsumeServiceTicket implements TicketRegistry. The read and the
// consumed-mark happen under one lock acquisition, so concurrent
// validations of a single-use ticket admit exactly one winner.
func (r *MemoryRegistry) ConsumeServiceTicket(ctx context.Context, id string) (*ticket.ServiceTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.getLocked(id, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	st, ok := t.(*ticket.ServiceTicket)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a service ticket", ErrTicketNotFound, id)
	}
	if st.Consumed {
		return nil, fmt.Errorf("%w: %s", ErrTicketConsumed, id)
	}
	if st.SingleUse() {
		st.Consumed = true
	}
	return st.Clone(), nil
}

// DeleteExpired implements TicketRegistry. Removes expired tickets and
// children whose parent is gone.
func (r *MemoryRegistry) DeleteExpired(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	removed := 0
	for id, t := range r.tickets {
		expired := t.IsExpired(now)
		if st, ok := t.(*ticket.ServiceTicket); ok && !expired && st.TGTID != "" {
			parent, ok := r.tickets[st.TGTID]
			if !ok || parent.IsExpired(now) {
				expired = true
			}
		}
		if expired {
			delete(r.tickets, id)
			removed++
		}
	}
	return removed, nil
}

// Count returns the number of stored tickets, expired or not. Used by
// tests asserting that failed grants leave the registry untouched.
func (r *MemoryRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tickets)
}

// Close implements TicketRegistry.
func (r *MemoryRegistry) Close() error { return nil }
