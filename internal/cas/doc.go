// ABOUTME: Package documentation for the cas package
// ABOUTME: CentralService orchestrates authentication and ticket issuance

/*
Package cas is the single entry point for ticket issuance and validation.

CentralService composes the authentication coordinator's output with the
ticket registry and the access-strategy enforcer: it mints ticket-granting
tickets for authentication results, grants child service tickets (and the
OAuth code/access/refresh variants) after the access strategy allows the
principal/service pair, validates service tickets by atomic consumption,
and cascade-destroys SSO sessions.

Issuance is all-or-nothing per request: a failure at any step leaves the
registry untouched.
*/
package cas
