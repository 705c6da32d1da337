// ABOUTME: Tests for the bcrypt-backed password handler
// ABOUTME: Covers success, wrong password, unknown user, and supports

package authn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPasswordHandler(t *testing.T) *PasswordHandler {
	t.Helper()
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	return NewPasswordHandler(map[string]string{"alice": hash})
}

func TestPasswordHandler_Success(t *testing.T) {
	h := testPasswordHandler(t)

	result, err := h.Authenticate(context.Background(),
		&UsernamePasswordCredential{Username: "alice", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "password", result.HandlerName)
	assert.Equal(t, "alice", result.Principal.ID)
}

func TestPasswordHandler_WrongPassword(t *testing.T) {
	h := testPasswordHandler(t)

	_, err := h.Authenticate(context.Background(),
		&UsernamePasswordCredential{Username: "alice", Password: "wrong"})
	assert.True(t, errors.Is(err, ErrBadCredentials))
}

func TestPasswordHandler_UnknownUser(t *testing.T) {
	h := testPasswordHandler(t)

	_, err := h.Authenticate(context.Background(),
		&UsernamePasswordCredential{Username: "mallory", Password: "hunter2"})
	assert.True(t, errors.Is(err, ErrUnknownPrincipal))
}

func TestPasswordHandler_Supports(t *testing.T) {
	h := testPasswordHandler(t)

	assert.True(t, h.Supports(&UsernamePasswordCredential{Username: "alice"}))
	assert.False(t, h.Supports(&UsernamePasswordCredential{}))
	assert.False(t, h.Supports(&TokenCredential{Token: "abc"}))
}

func TestCredential_StringRedactsSecrets(t *testing.T) {
	upc := &UsernamePasswordCredential{Username: "alice", Password: "hunter2"}
	assert.NotContains(t, upc.String(), "hunter2")

	tc := &TokenCredential{Token: "very-secret-token"}
	assert.NotContains(t, tc.String(), "very-secret-token")
	assert.Equal(t, "token:redacted", tc.ID())
}
