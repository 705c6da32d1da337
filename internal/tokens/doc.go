// ABOUTME: Package documentation for the tokens package
// ABOUTME: JWT serialization of access tokens downstream of grant extraction

// Package tokens mints and verifies the wire-format access tokens handed
// out after grant extraction. Access tokens are HS256-signed JWTs carrying
// the principal, the target service, and the issuing TGT id; refresh
// tokens stay opaque registry tickets and are never JWTs.
package tokens
