// ABOUTME: Credential types submitted by callers for authentication
// ABOUTME: Credentials are immutable and never expose secret material in logs

package authn

import "fmt"

// Credential is an identifier plus kind-specific secret material.
// Implementations are immutable once submitted. ID returns the non-secret
// identifier used for logging and support matching; secret material must
// never appear in String or log output.
type Credential interface {
	ID() string
}

// UsernamePasswordCredential carries a username and a raw password.
type UsernamePasswordCredential struct {
	Username string
	Password string
}

// ID returns the username.
func (c *UsernamePasswordCredential) ID() string { return c.Username }

// String redacts the password.
func (c *UsernamePasswordCredential) String() string {
	return fmt.Sprintf("UsernamePasswordCredential{username=%s}", c.Username)
}

// TokenCredential carries an opaque bearer token. Subject is filled in by
// the handler that parses the token; until then ID reports a redacted form.
type TokenCredential struct {
	Token   string
	Subject string
}

// ID returns the parsed subject if known, otherwise a redacted placeholder.
func (c *TokenCredential) ID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return "token:redacted"
}

// String redacts the token.
func (c *TokenCredential) String() string {
	return fmt.Sprintf("TokenCredential{subject=%s}", c.Subject)
}
