// ABOUTME: OAuth2 token endpoint translating form requests into grant extraction
// ABOUTME: Password verification runs here, upstream of the extractor chain

package httpapi

import (
	"net/http"
	"time"

	"github.com/2389/coven-sso/internal/authn"
	"github.com/2389/coven-sso/internal/oauth"
	"github.com/2389/coven-sso/internal/ticket"
)

// ServiceHeader is the request header consulted when a registered service
// requires header-based service resolution.
const ServiceHeader = "X-OAuth-Service"

// tokenResponse is the JSON shape of a successful token grant.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// handleToken is the RFC 6749 token endpoint.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	req := &oauth.TokenRequest{
		GrantType:     oauth.GrantType(r.PostFormValue("grant_type")),
		ClientID:      r.PostFormValue("client_id"),
		ClientSecret:  r.PostFormValue("client_secret"),
		Code:          r.PostFormValue("code"),
		RefreshToken:  r.PostFormValue("refresh_token"),
		Scope:         r.PostFormValue("scope"),
		ServiceHeader: r.Header.Get(ServiceHeader),
	}

	// The resource-owner password check is this layer's job; the
	// extractor only ever sees the verified profile.
	if req.GrantType == oauth.GrantPassword {
		username := r.PostFormValue("username")
		password := r.PostFormValue("password")
		if username != "" || password != "" {
			auth, err := s.coordinator.Authenticate(r.Context(), &authn.UsernamePasswordCredential{
				Username: username,
				Password: password,
			})
			if err != nil {
				s.writeCoreError(w, err)
				return
			}
			req.Profile = &oauth.Profile{
				ID:         auth.Principal.ID,
				Attributes: auth.Principal.Attributes,
			}
		}
	}

	holder, err := s.chain.Extract(r.Context(), req)
	if err != nil {
		s.writeCoreError(w, err)
		return
	}

	accessToken, err := s.minter.Mint(
		holder.Authentication.Principal.ID,
		holder.Service.ID,
		holder.TicketGrantingTicket.Id,
		s.accessTTL,
	)
	if err != nil {
		s.writeCoreError(w, err)
		return
	}

	resp := tokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.accessTTL / time.Second),
	}

	if holder.GenerateRefreshToken {
		rt, err := s.central.IssueChildTicket(r.Context(),
			holder.TicketGrantingTicket, holder.Service.ID, ticket.KindRefreshToken)
		if err != nil {
			s.writeCoreError(w, err)
			return
		}
		resp.RefreshToken = rt.Id
	}

	writeJSON(w, http.StatusOK, resp)
}
