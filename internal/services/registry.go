// ABOUTME: Service registry loading registered services from a TOML file
// ABOUTME: Read-only after load; lookups by client id or service pattern

package services

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/BurntSushi/toml"
)

// ErrUnknownService is returned when no enabled registered service covers
// the requested client id or service.
var ErrUnknownService = errors.New("unknown service")

// Registry is the read-only collection of registered services.
type Registry struct {
	byClientID map[string]*RegisteredService
	ordered    []*RegisteredService
	logger     *slog.Logger
}

// serviceFile is the TOML shape of the registered-services file.
type serviceFile struct {
	Services []serviceEntry `toml:"service"`
}

type serviceEntry struct {
	ID                   string              `toml:"id"`
	Name                 string              `toml:"name"`
	ClientID             string              `toml:"client_id"`
	ClientSecretHash     string              `toml:"client_secret_hash"`
	ServicePattern       string              `toml:"service_pattern"`
	Enabled              bool                `toml:"enabled"`
	GenerateRefreshToken bool                `toml:"generate_refresh_token"`
	RequireServiceHeader bool                `toml:"require_service_header"`
	RequiredAttributes   map[string][]string `toml:"required_attributes"`
	ReleasedAttributes   []string            `toml:"released_attributes"`
}

// LoadRegistry reads registered services from a TOML file.
func LoadRegistry(path string) (*Registry, error) {
	var file serviceFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("loading services file: %w", err)
	}
	return NewRegistry(file.toRegisteredServices())
}

func (f *serviceFile) toRegisteredServices() []*RegisteredService {
	out := make([]*RegisteredService, 0, len(f.Services))
	for _, e := range f.Services {
		out = append(out, &RegisteredService{
			ID:                   e.ID,
			Name:                 e.Name,
			ClientID:             e.ClientID,
			ClientSecretHash:     e.ClientSecretHash,
			Enabled:              e.Enabled,
			GenerateRefreshToken: e.GenerateRefreshToken,
			RequireServiceHeader: e.RequireServiceHeader,
			RequiredAttributes:   e.RequiredAttributes,
			ReleasedAttributes:   e.ReleasedAttributes,
			// pattern compiled in NewRegistry from the raw string
			rawPattern: e.ServicePattern,
		})
	}
	return out
}

// NewRegistry builds a registry from already-constructed services.
// Duplicate client ids are rejected.
func NewRegistry(entries []*RegisteredService) (*Registry, error) {
	r := &Registry{
		byClientID: make(map[string]*RegisteredService, len(entries)),
		logger:     slog.Default().With("component", "services"),
	}
	for _, rs := range entries {
		if rs.ClientID == "" {
			return nil, fmt.Errorf("registered service %q has no client id", rs.ID)
		}
		if _, dup := r.byClientID[rs.ClientID]; dup {
			return nil, fmt.Errorf("duplicate client id %q", rs.ClientID)
		}
		if rs.ServicePattern == nil && rs.rawPattern != "" {
			re, err := compilePattern(rs.rawPattern)
			if err != nil {
				return nil, err
			}
			rs.ServicePattern = re
		}
		r.byClientID[rs.ClientID] = rs
		r.ordered = append(r.ordered, rs)
	}
	r.logger.Info("service registry loaded", "services", len(r.ordered))
	return r, nil
}

// FindByClientID returns the registered service for a client id.
func (r *Registry) FindByClientID(clientID string) (*RegisteredService, error) {
	rs, ok := r.byClientID[clientID]
	if !ok {
		return nil, fmt.Errorf("%w: client id %q", ErrUnknownService, clientID)
	}
	return rs, nil
}

// FindByService returns the first registered service whose pattern covers
// the given service identifier.
func (r *Registry) FindByService(serviceID string) (*RegisteredService, error) {
	for _, rs := range r.ordered {
		if rs.MatchesService(serviceID) {
			return rs, nil
		}
	}
	return nil, fmt.Errorf("%w: service %q", ErrUnknownService, serviceID)
}

// All returns the registered services in load order.
func (r *Registry) All() []*RegisteredService {
	return r.ordered
}
