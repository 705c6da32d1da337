// ABOUTME: TicketRegistry interface and lifecycle errors
// ABOUTME: The registry is the sole shared mutable resource of the core

package registry

import (
	"context"
	"errors"

	"github.com/2389/coven-sso/internal/ticket"
)

// Registry errors
var (
	// ErrTicketNotFound is returned when no ticket exists with the id.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrTicketExpired is returned when a ticket exists but its expiration
	// policy (or its parent's) has fired. Expiration is terminal.
	ErrTicketExpired = errors.New("ticket expired")

	// ErrTicketConsumed is returned when a single-use ticket has already
	// been validated. Consumption is terminal.
	ErrTicketConsumed = errors.New("ticket already consumed")

	// ErrDuplicateTicket is returned by AddTicket when the id already
	// exists. The pre-existing ticket is left unmodified.
	ErrDuplicateTicket = errors.New("duplicate ticket id")
)

// TicketRegistry is the durable store of issued tickets. Implementations
// must be safe for concurrent use and must fail fast rather than block;
// retry policy belongs to the backend, not to callers of this interface.
type TicketRegistry interface {
	// AddTicket stores a new ticket. The uniqueness check and the insert
	// are one atomic unit; a duplicate id fails with ErrDuplicateTicket.
	AddTicket(ctx context.Context, t ticket.Ticket) error

	// GetTicket retrieves a live ticket. Expired tickets (including
	// children of dead parents) return ErrTicketExpired even before the
	// sweep removes them; unknown ids return ErrTicketNotFound.
	GetTicket(ctx context.Context, id string) (ticket.Ticket, error)

	// UpdateTicket replaces the stored state of an existing ticket.
	UpdateTicket(ctx context.Context, t ticket.Ticket) error

	// DeleteTicket removes a ticket. Deleting a TGT cascade-invalidates
	// its children: they become unvalidatable before the call returns.
	DeleteTicket(ctx context.Context, id string) error

	// ConsumeServiceTicket atomically validates a service ticket,
	// marking single-use kinds consumed. At most one concurrent caller
	// wins; the rest see ErrTicketConsumed.
	ConsumeServiceTicket(ctx context.Context, id string) (*ticket.ServiceTicket, error)

	// DeleteExpired physically removes expired, revoked, and orphaned
	// tickets and reports how many were removed. Scheduling the sweep is
	// the caller's concern.
	DeleteExpired(ctx context.Context) (int, error)

	// Close releases any resources held by the registry.
	Close() error
}
