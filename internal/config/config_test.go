// ABOUTME: Tests for configuration loading
// ABOUTME: Env expansion, duration parsing, and required-field validation

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sso.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: "/var/lib/sso/tickets.db"
auth:
  jwt_secret: "a-long-enough-secret-for-hs256-use"
  users:
    alice: "$2a$10$fakehash"
  attributes:
    alice:
      groups: ["staff"]
services:
  path: "/etc/sso/services.toml"
tickets:
  tgt_max_lifetime: "8h"
  tgt_idle_timeout: "2h"
  service_ticket_ttl: "10s"
  sweep_interval: "30s"
logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "/var/lib/sso/tickets.db", cfg.Database.Path)
	assert.Equal(t, "$2a$10$fakehash", cfg.Auth.Users["alice"])
	assert.Equal(t, []string{"staff"}, cfg.Auth.Attributes["alice"]["groups"])
	assert.Equal(t, "/etc/sso/services.toml", cfg.Services.Path)
	assert.Equal(t, 8*time.Hour, cfg.Tickets.TGTMaxLifetime)
	assert.Equal(t, 2*time.Hour, cfg.Tickets.TGTIdleTimeout)
	assert.Equal(t, 10*time.Second, cfg.Tickets.ServiceTicket)
	assert.Equal(t, 30*time.Second, cfg.Tickets.SweepInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_SSO_SECRET", "secret-from-environment-32-bytes!")

	path := writeConfig(t, `
server:
  http_addr: ":8080"
auth:
  jwt_secret: "${TEST_SSO_SECRET}"
services:
  path: "/etc/sso/services.toml"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-from-environment-32-bytes!", cfg.Auth.JWTSecret)
}

func TestLoad_UnsetEnvVarBecomesEmpty(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":8080"
auth:
  jwt_secret: "${DEFINITELY_NOT_SET_ANYWHERE}"
services:
  path: "/etc/sso/services.toml"
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "jwt_secret")
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":8080"
auth:
  jwt_secret: "a-long-enough-secret-for-hs256-use"
services:
  path: "/etc/sso/services.toml"
tickets:
  tgt_max_lifetime: "eight hours"
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "tgt_max_lifetime")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_RequiredFields(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"missing http_addr", Config{}, "http_addr"},
		{
			"missing jwt_secret",
			Config{Server: ServerConfig{HTTPAddr: ":8080"}},
			"jwt_secret",
		},
		{
			"missing services path",
			Config{
				Server: ServerConfig{HTTPAddr: ":8080"},
				Auth:   AuthConfig{JWTSecret: "x"},
			},
			"services.path",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorContains(t, tt.cfg.Validate(), tt.want)
		})
	}
}
