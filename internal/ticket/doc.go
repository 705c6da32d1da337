// ABOUTME: Package documentation for the ticket package
// ABOUTME: Describes ticket kinds, expiration policies, and id generation

/*
Package ticket defines the tickets issued by the SSO core and their
expiration semantics.

Two concrete kinds exist. A TicketGrantingTicket (TGT) represents a
verified principal's SSO session and owns its child tickets; a
ServiceTicket is a short-lived, single-use ticket scoped to one target
service and back-references its parent TGT by id. OAuth authorization
codes, access tokens, and refresh tokens are service tickets with distinct
id prefixes.

Ticket identifiers are globally unique and never reused. Expiration,
consumption, and revocation are terminal: no transition leaves those
states. A child ticket can have its lifetime accelerated by its parent's
expiration or revocation but never extended.
*/
package ticket
