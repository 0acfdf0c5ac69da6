package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trellis/internal/credstore"
	"trellis/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for token endpoint requests.
const DefaultHTTPTimeout = 30 * time.Second

// Exchanger performs the stateless token-endpoint operations: authorization
// code exchange, refresh, and best-effort revocation.
//
// The CLI is a public client: no client secret exists and none is ever sent.
// PKCE carries the proof instead.
type Exchanger struct {
	httpClient *http.Client
	clientID   string
	tokenURL   string
	revokeURL  string
}

// ExchangerConfig configures the Exchanger.
type ExchangerConfig struct {
	// ClientID is the public client identifier.
	ClientID string

	// TokenURL is the provider's token endpoint.
	TokenURL string

	// RevokeURL is the provider's revocation endpoint. Optional; when
	// empty, Revoke is a no-op.
	RevokeURL string

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client
}

// NewExchanger creates a token-endpoint client.
func NewExchanger(cfg ExchangerConfig) *Exchanger {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	return &Exchanger{
		httpClient: httpClient,
		clientID:   cfg.ClientID,
		tokenURL:   cfg.TokenURL,
		revokeURL:  cfg.RevokeURL,
	}
}

// tokenResponse is the provider's token endpoint response document.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// oauthErrorResponse is the standard OAuth error document.
type oauthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeCode exchanges an authorization code for a credential record.
// A 2xx response that is missing access_token, refresh_token or expires_in
// is a malformed provider response and fails with ProtocolError; fields are
// never silently defaulted.
func (e *Exchanger) ExchangeCode(ctx context.Context, code, verifier, redirectURI string) (*credstore.Record, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"client_id":     {e.clientID},
		"code_verifier": {verifier},
	}

	return e.doTokenRequest(ctx, data)
}

// Refresh obtains a new record using a refresh token. The provider rotates
// refresh tokens, so a successful call invalidates the token that was used.
// An invalid_grant error body means the token is permanently dead and
// surfaces as InvalidGrantError; any other failure is retryable by the
// caller's normal policy.
func (e *Exchanger) Refresh(ctx context.Context, refreshToken string) (*credstore.Record, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {e.clientID},
	}

	rec, err := e.doTokenRequest(ctx, data)
	if err != nil {
		var netErr *NetworkError
		if errors.As(err, &netErr) && netErr.OAuthCode == "invalid_grant" {
			return nil, &InvalidGrantError{Description: netErr.OAuthDescription}
		}
		return nil, err
	}
	return rec, nil
}

// Revoke notifies the provider that a token is no longer needed. Revocation
// is advisory cleanup, not a correctness requirement: failures are logged
// and never returned.
func (e *Exchanger) Revoke(ctx context.Context, token, typeHint string) {
	if e.revokeURL == "" || token == "" {
		return
	}

	data := url.Values{
		"token":     {token},
		"client_id": {e.clientID},
	}
	if typeHint != "" {
		data.Set("token_type_hint", typeHint)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.revokeURL, strings.NewReader(data.Encode()))
	if err != nil {
		logging.Warn("TokenExchange", "failed to build revocation request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		logging.Warn("TokenExchange", "token revocation failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logging.Warn("TokenExchange", "token revocation returned status %d", resp.StatusCode)
	}
}

// doTokenRequest performs one token endpoint POST and validates the response
// into a whole credential record.
func (e *Exchanger) doTokenRequest(ctx context.Context, data url.Values) (*credstore.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, &NetworkError{Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{StatusCode: resp.StatusCode, Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		netErr := &NetworkError{StatusCode: resp.StatusCode, Body: string(body)}
		var oauthErr oauthErrorResponse
		if json.Unmarshal(body, &oauthErr) == nil {
			netErr.OAuthCode = oauthErr.Error
			netErr.OAuthDescription = oauthErr.ErrorDescription
		}
		logging.Debug("TokenExchange", "token request failed with status %d (oauth error %q)", resp.StatusCode, netErr.OAuthCode)
		return nil, netErr
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, &ProtocolError{Code: "malformed_response", Description: "token response is not valid JSON"}
	}

	switch {
	case tok.AccessToken == "":
		return nil, &ProtocolError{Code: "malformed_response", Description: "token response is missing access_token"}
	case tok.RefreshToken == "":
		return nil, &ProtocolError{Code: "malformed_response", Description: "token response is missing refresh_token"}
	case tok.ExpiresIn <= 0:
		return nil, &ProtocolError{Code: "malformed_response", Description: "token response is missing expires_in"}
	}

	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = credstore.DefaultTokenType
	}

	rec := &credstore.Record{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    time.Now().UnixMilli() + tok.ExpiresIn*1000,
		TokenType:    tokenType,
	}
	if tok.Scope != "" {
		rec.Scope = strings.Fields(tok.Scope)
	}
	return rec, nil
}
