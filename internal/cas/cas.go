// ABOUTME: CentralService issuing and validating tickets against the registry
// ABOUTME: Access strategy is enforced before any child ticket is granted

package cas

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/coven-sso/internal/authn"
	"github.com/2389/coven-sso/internal/registry"
	"github.com/2389/coven-sso/internal/services"
	"github.com/2389/coven-sso/internal/ticket"
)

// TicketLifetimes configures the expiration policies for issued tickets.
type TicketLifetimes struct {
	TGTMaxLifetime time.Duration
	TGTIdleTimeout time.Duration
	ServiceTicket  time.Duration
	OAuthCode      time.Duration
	AccessToken    time.Duration
	RefreshToken   time.Duration
}

// DefaultLifetimes mirrors common SSO defaults: an 8-hour session with a
// 2-hour idle window, 10-second service tickets, 30-second codes.
func DefaultLifetimes() TicketLifetimes {
	return TicketLifetimes{
		TGTMaxLifetime: 8 * time.Hour,
		TGTIdleTimeout: 2 * time.Hour,
		ServiceTicket:  10 * time.Second,
		OAuthCode:      30 * time.Second,
		AccessToken:    time.Hour,
		RefreshToken:   30 * 24 * time.Hour,
	}
}

// CentralService orchestrates credential validation and ticket issuance.
// It is the only component that writes to the ticket registry.
type CentralService struct {
	registry  registry.TicketRegistry
	servicesR *services.Registry
	enforcer  *services.AccessEnforcer
	lifetimes TicketLifetimes
	logger    *slog.Logger
}

// New creates a CentralService.
func New(reg registry.TicketRegistry, sr *services.Registry, enforcer *services.AccessEnforcer, lifetimes TicketLifetimes) *CentralService {
	return &CentralService{
		registry:  reg,
		servicesR: sr,
		enforcer:  enforcer,
		lifetimes: lifetimes,
		logger:    slog.Default().With("component", "cas"),
	}
}

// Services exposes the registered-service registry for collaborators that
// resolve services themselves (the OAuth grant layer).
func (c *CentralService) Services() *services.Registry { return c.servicesR }

// Enforcer exposes the access-strategy enforcer.
func (c *CentralService) Enforcer() *services.AccessEnforcer { return c.enforcer }

// CreateTicketGrantingTicket mints a TGT for an authentication result.
// The authentication is attached to exactly this TGT; the service binding
// is carried through from the result (and may be absent).
func (c *CentralService) CreateTicketGrantingTicket(ctx context.Context, result *authn.Result) (*ticket.TicketGrantingTicket, error) {
	if result == nil || result.Authentication == nil {
		return nil, fmt.Errorf("authentication result required")
	}

	tgt := ticket.NewTicketGrantingTicket(
		ticket.NewID(ticket.KindTicketGranting),
		result,
		ticket.IdleTimeoutPolicy{
			IdleTimeout: c.lifetimes.TGTIdleTimeout,
			MaxLifetime: c.lifetimes.TGTMaxLifetime,
		},
	)

	if err := c.registry.AddTicket(ctx, tgt); err != nil {
		return nil, fmt.Errorf("storing ticket-granting ticket: %w", err)
	}

	c.logger.Info("issued ticket-granting ticket",
		"tgt", tgt.Id, "principal", result.Authentication.Principal.ID)
	return tgt, nil
}

// GrantServiceTicket issues a child ticket of the given kind after the
// access strategy allows the principal/service pair. Nothing is stored if
// any step fails.
func (c *CentralService) GrantServiceTicket(ctx context.Context, tgtID string, svc *authn.Service, kind ticket.Kind) (*ticket.ServiceTicket, error) {
	t, err := c.registry.GetTicket(ctx, tgtID)
	if err != nil {
		return nil, err
	}
	tgt, ok := t.(*ticket.TicketGrantingTicket)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a ticket-granting ticket", registry.ErrTicketNotFound, tgtID)
	}

	rs, err := c.servicesR.FindByService(svc.ID)
	if err != nil {
		return nil, err
	}
	if err := c.enforcer.EnsurePrincipalAccessIsAllowed(svc, rs, tgt.Authentication); err != nil {
		return nil, err
	}

	st := ticket.NewServiceTicket(
		ticket.NewID(kind),
		tgt.Id,
		svc.ID,
		kind,
		ticket.HardTimeoutPolicy{TimeToLive: c.lifetimeFor(kind)},
	)

	if err := c.registry.AddTicket(ctx, st); err != nil {
		return nil, fmt.Errorf("storing service ticket: %w", err)
	}

	tgt.GrantChild(st.Id)
	if err := c.registry.UpdateTicket(ctx, tgt); err != nil {
		// Keep issuance all-or-nothing: undo the child insert.
		_ = c.registry.DeleteTicket(ctx, st.Id)
		return nil, fmt.Errorf("recording child ticket: %w", err)
	}

	c.logger.Info("granted service ticket",
		"ticket", st.Id, "kind", string(kind), "service", svc.ID, "tgt", tgt.Id)
	return st, nil
}

// IssueChildTicket issues a child ticket without re-running the access
// strategy, for grant flows that already enforced it against the same
// registered service.
func (c *CentralService) IssueChildTicket(ctx context.Context, tgt *ticket.TicketGrantingTicket, serviceID string, kind ticket.Kind) (*ticket.ServiceTicket, error) {
	st := ticket.NewServiceTicket(
		ticket.NewID(kind),
		tgt.Id,
		serviceID,
		kind,
		ticket.HardTimeoutPolicy{TimeToLive: c.lifetimeFor(kind)},
	)
	if err := c.registry.AddTicket(ctx, st); err != nil {
		return nil, fmt.Errorf("storing child ticket: %w", err)
	}
	tgt.GrantChild(st.Id)
	if err := c.registry.UpdateTicket(ctx, tgt); err != nil {
		_ = c.registry.DeleteTicket(ctx, st.Id)
		return nil, fmt.Errorf("recording child ticket: %w", err)
	}
	return st, nil
}

// ValidateServiceTicket atomically consumes a service ticket and returns
// the authentication of its SSO session. The requested service must match
// the one the ticket was issued for.
func (c *CentralService) ValidateServiceTicket(ctx context.Context, id string, svc *authn.Service) (*authn.Authentication, error) {
	st, err := c.registry.ConsumeServiceTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if svc != nil && st.ServiceID != svc.ID {
		return nil, &services.UnauthorizedServiceError{
			ServiceID: svc.ID,
			Reason:    "ticket issued for a different service",
		}
	}

	t, err := c.registry.GetTicket(ctx, st.TGTID)
	if err != nil {
		return nil, err
	}
	tgt, ok := t.(*ticket.TicketGrantingTicket)
	if !ok {
		return nil, fmt.Errorf("%w: parent %s", registry.ErrTicketNotFound, st.TGTID)
	}

	c.logger.Info("validated service ticket",
		"ticket", st.Id, "service", st.ServiceID,
		"principal", tgt.Authentication.Principal.ID)
	return tgt.Authentication, nil
}

// GetTicketGrantingTicket resolves a live TGT by id.
func (c *CentralService) GetTicketGrantingTicket(ctx context.Context, id string) (*ticket.TicketGrantingTicket, error) {
	t, err := c.registry.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	tgt, ok := t.(*ticket.TicketGrantingTicket)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a ticket-granting ticket", registry.ErrTicketNotFound, id)
	}
	return tgt, nil
}

// DestroyTicketGrantingTicket ends an SSO session. Child tickets are
// unvalidatable by the time the call returns.
func (c *CentralService) DestroyTicketGrantingTicket(ctx context.Context, id string) error {
	if err := c.registry.DeleteTicket(ctx, id); err != nil {
		return err
	}
	c.logger.Info("destroyed ticket-granting ticket", "tgt", id)
	return nil
}

// lifetimeFor maps a ticket kind to its configured time to live.
func (c *CentralService) lifetimeFor(kind ticket.Kind) time.Duration {
	switch kind {
	case ticket.KindOAuthCode:
		return c.lifetimes.OAuthCode
	case ticket.KindAccessToken:
		return c.lifetimes.AccessToken
	case ticket.KindRefreshToken:
		return c.lifetimes.RefreshToken
	default:
		return c.lifetimes.ServiceTicket
	}
}
