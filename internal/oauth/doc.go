// ABOUTME: Package documentation for the oauth package
// ABOUTME: Grant extractors mapping token requests onto the ticket model

/*
Package oauth adapts OAuth2-style grant requests onto the ticket model.

Each grant kind (password, authorization_code, client_credentials,
refresh_token) has an Extractor that claims requests via Supports, keyed
on the grant_type parameter, and turns a claimed request into an
AccessTokenRequest: the validated service, the authentication, the
registered service, the issuing TGT, and the refresh-token eligibility
flag. The holder is transient; a downstream minter serializes the actual
wire tokens.

Every extractor follows the same skeleton: resolve and validate the
target service, validate the credential or profile, build an
authentication, enforce the access strategy, issue or reuse a TGT. Raw
credential verification for the password grant happens outside this
package; extractors only consume the already-verified Profile.
*/
package oauth
