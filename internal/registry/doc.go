// ABOUTME: Package documentation for the registry package
// ABOUTME: Describes the ticket registry contract and its implementations

/*
Package registry stores issued tickets and enforces their lifecycle
invariants.

The TicketRegistry contract is CRUD plus two atomic operations: AddTicket
(uniqueness check and insert as one unit) and ConsumeServiceTicket
(read-and-mark-consumed, so concurrent validations of a single-use ticket
admit at most one winner). Reads apply lazy expiration: an expired ticket
is reported expired even before the sweep physically removes it, and a
child ticket is reported expired as soon as its parent TGT is expired,
revoked, or gone.

Two implementations are provided: MemoryRegistry for tests and
single-process deployments, and SQLiteRegistry for durable storage. The
Sweeper periodically asks a registry to delete expired tickets; scheduling
is owned by the caller that starts it.
*/
package registry
