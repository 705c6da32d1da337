// ABOUTME: Package documentation for the services package
// ABOUTME: Registered service metadata, lookup, and access-strategy enforcement

/*
Package services holds the externally managed metadata describing the
applications allowed to consume tickets, and enforces per-service access
policy.

A RegisteredService is long-lived configuration: client id and secret,
a service-URL pattern, an enabled flag, refresh-token eligibility, and the
access rules a principal must satisfy. Services load from a TOML file at
startup and are read-only afterwards.

The AccessEnforcer runs the ordered checks of the access strategy: the
registered service must exist and be enabled, the requested service must
match the registered pattern, and the principal must carry any required
attributes. The first failing check short-circuits with a typed error.
*/
package services
