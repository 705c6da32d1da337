// ABOUTME: Package documentation for the authn package
// ABOUTME: Explains credentials, handlers, resolvers, and the coordinator

/*
Package authn turns submitted credentials into a verified Authentication.

The package is organized as a pipeline:

  - Credential: what the caller submitted (username/password, bearer token).
  - Handler: validates one kind of credential. Handlers declare which
    credentials they support and are tried in a fixed, configured order.
  - PrincipalResolver: turns a raw credential plus a handler's principal
    into a fully attributed Principal. The echoing resolver passes the
    handler's principal through unchanged; the attribute resolver overlays
    attributes from an attribute repository.
  - Coordinator: runs the handler chain, applies the success policy, runs
    the resolver chain for each successful handler, merges principals, and
    assembles a single immutable Authentication.

Handlers and resolvers are shared across concurrent requests and must be
stateless or internally thread-safe. A failed chain run produces an
*AuthenticationError carrying per-handler failure reasons; no partial state
is ever persisted.
*/
package authn
