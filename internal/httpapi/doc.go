// ABOUTME: Package documentation for the httpapi package
// ABOUTME: Form-encoded HTTP surface over the grant and ticket core

/*
Package httpapi exposes the SSO core over HTTP.

Endpoints:

  - POST /oauth2/token — form-encoded token endpoint (RFC 6749). The
    password grant's raw credential check runs through the authentication
    coordinator here, producing the verified profile the extractors
    consume.
  - POST /v1/login — credential submission issuing a TGT (and a service
    ticket when a service parameter is present).
  - POST /v1/validate — single-use service ticket validation.
  - DELETE /v1/sessions/{tgt} — SSO session destruction.
  - GET /healthz — liveness.

Every failure maps from the core's typed errors to an OAuth2 error code
and HTTP status; no error strings are matched.
*/
package httpapi
