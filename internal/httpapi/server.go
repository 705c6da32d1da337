// ABOUTME: HTTP server wiring routes to the SSO core
// ABOUTME: Ticket endpoints for login, validation, and session destruction

package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/coven-sso/internal/authn"
	"github.com/2389/coven-sso/internal/cas"
	"github.com/2389/coven-sso/internal/oauth"
	"github.com/2389/coven-sso/internal/registry"
	"github.com/2389/coven-sso/internal/services"
	"github.com/2389/coven-sso/internal/ticket"
	"github.com/2389/coven-sso/internal/tokens"
)

// Server handles the HTTP surface of the SSO core.
type Server struct {
	central     *cas.CentralService
	coordinator *authn.Coordinator
	chain       *oauth.Chain
	minter      *tokens.Minter
	accessTTL   time.Duration
	logger      *slog.Logger
	mux         *http.ServeMux
}

// NewServer creates the HTTP server and registers its routes.
func NewServer(central *cas.CentralService, coordinator *authn.Coordinator, chain *oauth.Chain, minter *tokens.Minter, accessTTL time.Duration) *Server {
	s := &Server{
		central:     central,
		coordinator: coordinator,
		chain:       chain,
		minter:      minter,
		accessTTL:   accessTTL,
		logger:      slog.Default().With("component", "httpapi"),
		mux:         http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /oauth2/token", s.handleToken)
	s.mux.HandleFunc("POST /v1/login", s.handleLogin)
	s.mux.HandleFunc("POST /v1/validate", s.handleValidate)
	s.mux.HandleFunc("DELETE /v1/sessions/{tgt}", s.handleLogout)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// loginResponse is the JSON shape of a successful login.
type loginResponse struct {
	TGT           string `json:"tgt"`
	ServiceTicket string `json:"service_ticket,omitempty"`
	Principal     string `json:"principal"`
}

// handleLogin authenticates a username/password credential and issues a
// TGT. When a service parameter is present a service ticket is granted in
// the same request.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	cred := &authn.UsernamePasswordCredential{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}

	auth, err := s.coordinator.Authenticate(r.Context(), cred)
	if err != nil {
		s.writeCoreError(w, err)
		return
	}

	tgt, err := s.central.CreateTicketGrantingTicket(r.Context(), &authn.Result{Authentication: auth})
	if err != nil {
		s.writeCoreError(w, err)
		return
	}

	resp := loginResponse{TGT: tgt.Id, Principal: auth.Principal.ID}
	if serviceID := r.PostFormValue("service"); serviceID != "" {
		st, err := s.central.GrantServiceTicket(r.Context(), tgt.Id, &authn.Service{ID: serviceID}, ticket.KindService)
		if err != nil {
			// All-or-nothing: a denied service grant tears the session down.
			_ = s.central.DestroyTicketGrantingTicket(r.Context(), tgt.Id)
			s.writeCoreError(w, err)
			return
		}
		resp.ServiceTicket = st.Id
	}

	writeJSON(w, http.StatusOK, resp)
}

// validateResponse is the JSON shape of a successful validation.
type validateResponse struct {
	Principal  string              `json:"principal"`
	Attributes map[string][]string `json:"attributes,omitempty"`
}

// handleValidate consumes a single-use service ticket.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	ticketID := r.PostFormValue("ticket")
	serviceID := r.PostFormValue("service")
	if ticketID == "" || serviceID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "ticket and service are required")
		return
	}

	auth, err := s.central.ValidateServiceTicket(r.Context(), ticketID, &authn.Service{ID: serviceID})
	if err != nil {
		s.writeCoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, validateResponse{
		Principal:  auth.Principal.ID,
		Attributes: auth.Principal.Attributes,
	})
}

// handleLogout destroys an SSO session and all its child tickets.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	tgtID := r.PathValue("tgt")
	if err := s.central.DestroyTicketGrantingTicket(r.Context(), tgtID); err != nil {
		s.writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "destroyed"})
}

// writeCoreError maps the core's typed errors onto OAuth2 error codes and
// HTTP statuses.
func (s *Server) writeCoreError(w http.ResponseWriter, err error) {
	var (
		authErr    *authn.AuthenticationError
		accessErr  *services.UnauthorizedServiceError
		statusCode int
		code       string
	)

	switch {
	case errors.Is(err, services.ErrUnknownService):
		statusCode, code = http.StatusUnauthorized, "invalid_client"
	case errors.Is(err, oauth.ErrInvalidClient):
		statusCode, code = http.StatusUnauthorized, "invalid_client"
	case errors.As(err, &accessErr):
		statusCode, code = http.StatusForbidden, "unauthorized_client"
	case errors.Is(err, oauth.ErrMissingProfile):
		statusCode, code = http.StatusUnauthorized, "invalid_grant"
	case errors.As(err, &authErr):
		statusCode, code = http.StatusUnauthorized, "invalid_grant"
	case errors.Is(err, oauth.ErrUnsupportedGrant):
		statusCode, code = http.StatusBadRequest, "unsupported_grant_type"
	case errors.Is(err, registry.ErrTicketNotFound),
		errors.Is(err, registry.ErrTicketExpired),
		errors.Is(err, registry.ErrTicketConsumed):
		statusCode, code = http.StatusBadRequest, "invalid_grant"
	case errors.Is(err, registry.ErrDuplicateTicket):
		statusCode, code = http.StatusConflict, "server_error"
	default:
		statusCode, code = http.StatusInternalServerError, "server_error"
	}

	s.logger.Warn("request failed", "code", code, "error", err)
	writeError(w, statusCode, code, err.Error())
}

// errorResponse is the OAuth2-style error body.
type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, errorResponse{Error: code, Description: description})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
