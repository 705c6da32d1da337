// ABOUTME: Ticket-granting tickets and service tickets with lifecycle state
// ABOUTME: Consumption and revocation are terminal; children reference parents by id

package ticket

import (
	"slices"
	"time"

	"github.com/2389/coven-sso/internal/authn"
)

// Kind identifies a ticket kind and determines its id prefix.
type Kind string

// Ticket kinds
const (
	KindTicketGranting Kind = "TGT"
	KindService        Kind = "ST"
	KindOAuthCode      Kind = "OC"
	KindAccessToken    Kind = "AT"
	KindRefreshToken   Kind = "RT"
)

// Ticket is the supertype of everything the registry stores.
type Ticket interface {
	// ID returns the globally unique opaque identifier.
	ID() string

	// Created returns the creation timestamp.
	Created() time.Time

	// IsExpired reports whether the ticket's own expiration policy has
	// fired as of now. Parent-driven invalidation is layered on by the
	// registry and is not visible here.
	IsExpired(now time.Time) bool
}

// TicketGrantingTicket represents a verified principal's SSO session. It
// carries the Authentication produced at issuance and owns zero or more
// child tickets. Revoked is terminal.
type TicketGrantingTicket struct {
	Id             string
	Authentication *authn.Authentication
	Service        *authn.Service // nil unless the grant bound a service
	CreatedAt      time.Time
	LastUsedAt     time.Time
	Policy         ExpirationPolicy
	ChildIDs       []string
	Revoked        bool
}

// NewTicketGrantingTicket issues a TGT for the given authentication
// result. The authentication is attached to exactly this one TGT.
func NewTicketGrantingTicket(id string, result *authn.Result, policy ExpirationPolicy) *TicketGrantingTicket {
	now := time.Now().UTC()
	return &TicketGrantingTicket{
		Id:             id,
		Authentication: result.Authentication,
		Service:        result.Service,
		CreatedAt:      now,
		LastUsedAt:     now,
		Policy:         policy,
	}
}

// ID implements Ticket.
func (t *TicketGrantingTicket) ID() string { return t.Id }

// Created implements Ticket.
func (t *TicketGrantingTicket) Created() time.Time { return t.CreatedAt }

// IsExpired implements Ticket. A revoked TGT is expired regardless of
// policy.
func (t *TicketGrantingTicket) IsExpired(now time.Time) bool {
	if t.Revoked {
		return true
	}
	return t.Policy.IsExpired(t.CreatedAt, t.LastUsedAt, now)
}

// GrantChild records a child ticket id on the TGT and touches its
// last-used time.
func (t *TicketGrantingTicket) GrantChild(childID string) {
	t.ChildIDs = append(t.ChildIDs, childID)
	t.LastUsedAt = time.Now().UTC()
}

// Clone returns a copy that can be mutated without affecting t. The
// Authentication is shared; it is immutable once constructed.
func (t *TicketGrantingTicket) Clone() *TicketGrantingTicket {
	cp := *t
	cp.ChildIDs = slices.Clone(t.ChildIDs)
	return &cp
}

// ServiceTicket is a short-lived ticket scoped to one target service.
// Single-use kinds transition to consumed on first validation and can
// never validate again.
type ServiceTicket struct {
	Id        string
	TGTID     string
	ServiceID string
	Kind      Kind
	CreatedAt time.Time
	Policy    ExpirationPolicy
	Consumed  bool
}

// NewServiceTicket creates a child ticket of the given TGT.
func NewServiceTicket(id, tgtID, serviceID string, kind Kind, policy ExpirationPolicy) *ServiceTicket {
	return &ServiceTicket{
		Id:        id,
		TGTID:     tgtID,
		ServiceID: serviceID,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
		Policy:    policy,
	}
}

// ID implements Ticket.
func (t *ServiceTicket) ID() string { return t.Id }

// Created implements Ticket.
func (t *ServiceTicket) Created() time.Time { return t.CreatedAt }

// IsExpired implements Ticket.
func (t *ServiceTicket) IsExpired(now time.Time) bool {
	return t.Policy.IsExpired(t.CreatedAt, t.CreatedAt, now)
}

// Clone returns a copy that can be mutated without affecting t.
func (t *ServiceTicket) Clone() *ServiceTicket {
	cp := *t
	return &cp
}

// SingleUse reports whether this ticket kind is consumed on validation.
// Access tokens and refresh tokens validate repeatedly until they expire;
// service tickets and authorization codes are one-shot.
func (t *ServiceTicket) SingleUse() bool {
	return t.Kind == KindService || t.Kind == KindOAuthCode
}
