// ABOUTME: Coordinator running the handler chain and resolver chain
// ABOUTME: Aggregates per-handler outcomes into one immutable Authentication

package authn

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// SuccessPolicy controls how many supporting handlers must succeed for a
// chain run to succeed overall.
type SuccessPolicy int

const (
	// AnySuccess succeeds when at least one supporting handler succeeds.
	AnySuccess SuccessPolicy = iota
	// AllMustSucceed requires every supporting handler to succeed.
	AllMustSucceed
)

// HandlerFailure records why one handler rejected a credential.
type HandlerFailure struct {
	HandlerName string
	Err         error
}

// AuthenticationError is returned when a chain run fails overall. It
// carries the per-handler failure reasons so callers can report them
// without string matching.
type AuthenticationError struct {
	Failures []HandlerFailure
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	if len(e.Failures) == 0 {
		return "authentication failed: no supporting handler"
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.HandlerName, f.Err))
	}
	return "authentication failed: " + strings.Join(parts, "; ")
}

// Coordinator runs an ordered handler chain and resolver chain. Handlers
// are tried in configured order; the resolvers of each successful handler
// attribute its principal; principals merge by identifier with later
// resolver attributes overlaying earlier ones.
type Coordinator struct {
	handlers  []Handler
	resolvers []PrincipalResolver
	policy    SuccessPolicy
	logger    *slog.Logger
}

// NewCoordinator creates a coordinator over the given ordered handlers and
// resolvers with the AnySuccess policy.
func NewCoordinator(handlers []Handler, resolvers []PrincipalResolver) *Coordinator {
	return &Coordinator{
		handlers:  handlers,
		resolvers: resolvers,
		policy:    AnySuccess,
		logger:    slog.Default().With("component", "authn.coordinator"),
	}
}

// WithPolicy sets the success policy and returns the coordinator.
func (co *Coordinator) WithPolicy(p SuccessPolicy) *Coordinator {
	co.policy = p
	return co
}

// Authenticate runs the chain for the submitted credentials and assembles
// one Authentication. On total failure it returns an *AuthenticationError
// with per-handler reasons; nothing is persisted and no ticket may be
// issued from a failed run.
func (co *Coordinator) Authenticate(ctx context.Context, creds ...Credential) (*Authentication, error) {
	var (
		successes []HandlerResult
		failures  []HandlerFailure
		warnings  []string
		principal *Principal
		supported int
	)

	for _, c := range creds {
		for _, h := range co.handlers {
			if !h.Supports(c) {
				continue
			}
			supported++

			result, err := h.Authenticate(ctx, c)
			if err != nil {
				co.logger.Warn("handler rejected credential",
					"handler", h.Name(), "credential", c.ID(), "error", err)
				failures = append(failures, HandlerFailure{HandlerName: h.Name(), Err: err})
				continue
			}

			resolved, err := co.resolvePrincipal(c, result, h)
			if err != nil {
				failures = append(failures, HandlerFailure{HandlerName: h.Name(), Err: err})
				continue
			}

			if principal == nil {
				principal = resolved
			} else {
				merged, err := principal.Merge(resolved)
				if err != nil {
					co.logger.Warn("handler principal mismatch",
						"handler", h.Name(), "principal", resolved.ID, "error", err)
					failures = append(failures, HandlerFailure{HandlerName: h.Name(), Err: err})
					continue
				}
				principal = merged
			}

			successes = append(successes, *result)
			warnings = append(warnings, result.Warnings...)
		}
	}

	if supported == 0 || len(successes) == 0 {
		return nil, &AuthenticationError{Failures: failures}
	}
	if co.policy == AllMustSucceed && len(failures) > 0 {
		return nil, &AuthenticationError{Failures: failures}
	}

	co.logger.Info("authentication succeeded",
		"principal", principal.ID, "handlers", len(successes))

	return &Authentication{
		Principal:       principal,
		Successes:       successes,
		Warnings:        warnings,
		AuthenticatedAt: time.Now().UTC(),
	}, nil
}

// resolvePrincipal runs the resolver chain for one successful handler.
// Later resolvers' attributes overlay earlier ones; a resolver whose
// Supports is false is skipped, never invoked.
func (co *Coordinator) resolvePrincipal(c Credential, result *HandlerResult, h Handler) (*Principal, error) {
	principal := result.Principal
	for _, r := range co.resolvers {
		if !r.Supports(c) {
			continue
		}
		resolved, err := r.Resolve(c, principal, h)
		if err != nil {
			return nil, fmt.Errorf("resolving principal for handler %s: %w", h.Name(), err)
		}
		merged, err := principal.Merge(resolved)
		if err != nil {
			return nil, fmt.Errorf("resolving principal for handler %s: %w", h.Name(), err)
		}
		principal = merged
	}
	return principal, nil
}
