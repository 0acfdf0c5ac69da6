package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenEndpoint is a scriptable fake provider token endpoint.
func tokenEndpoint(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestExchanger_ExchangeCode(t *testing.T) {
	t.Run("successful exchange", func(t *testing.T) {
		var form map[string][]string
		srv := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			form = r.PostForm
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600,"scope":"read issues:create"}`)
		})

		ex := NewExchanger(ExchangerConfig{ClientID: "cli-id", TokenURL: srv.URL})

		before := time.Now().UnixMilli()
		rec, err := ex.ExchangeCode(context.Background(), "the-code", "the-verifier", "http://localhost:9000/cb")
		require.NoError(t, err)

		assert.Equal(t, "at", rec.AccessToken)
		assert.Equal(t, "rt", rec.RefreshToken)
		assert.Equal(t, "Bearer", rec.TokenType)
		assert.Equal(t, []string{"read", "issues:create"}, rec.Scope)
		assert.GreaterOrEqual(t, rec.ExpiresAt, before+3600*1000)

		// The request must be a public-client exchange: PKCE verifier
		// present, no client secret anywhere.
		assert.Equal(t, []string{"authorization_code"}, form["grant_type"])
		assert.Equal(t, []string{"the-code"}, form["code"])
		assert.Equal(t, []string{"the-verifier"}, form["code_verifier"])
		assert.Equal(t, []string{"cli-id"}, form["client_id"])
		assert.Equal(t, []string{"http://localhost:9000/cb"}, form["redirect_uri"])
		assert.NotContains(t, form, "client_secret")
	})

	t.Run("missing refresh_token is a protocol error", func(t *testing.T) {
		srv := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"access_token":"at","token_type":"Bearer","expires_in":3600}`)
		})

		ex := NewExchanger(ExchangerConfig{ClientID: "cli-id", TokenURL: srv.URL})
		_, err := ex.ExchangeCode(context.Background(), "c", "v", "r")

		var perr *ProtocolError
		require.ErrorAs(t, err, &perr)
		assert.Contains(t, perr.Description, "refresh_token")
	})

	t.Run("missing expires_in is a protocol error", func(t *testing.T) {
		srv := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"access_token":"at","refresh_token":"rt","token_type":"Bearer"}`)
		})

		ex := NewExchanger(ExchangerConfig{ClientID: "cli-id", TokenURL: srv.URL})
		_, err := ex.ExchangeCode(context.Background(), "c", "v", "r")

		var perr *ProtocolError
		require.ErrorAs(t, err, &perr)
	})

	t.Run("non-2xx carries status and body", func(t *testing.T) {
		srv := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, "upstream exploded")
		})

		ex := NewExchanger(ExchangerConfig{ClientID: "cli-id", TokenURL: srv.URL})
		_, err := ex.ExchangeCode(context.Background(), "c", "v", "r")

		var netErr *NetworkError
		require.ErrorAs(t, err, &netErr)
		assert.Equal(t, http.StatusBadGateway, netErr.StatusCode)
		assert.Contains(t, netErr.Body, "upstream exploded")
	})
}

func TestExchanger_Refresh(t *testing.T) {
	t.Run("successful refresh rotates the refresh token", func(t *testing.T) {
		var form map[string][]string
		srv := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			form = r.PostForm
			fmt.Fprint(w, `{"access_token":"at2","refresh_token":"rt2","token_type":"Bearer","expires_in":3600}`)
		})

		ex := NewExchanger(ExchangerConfig{ClientID: "cli-id", TokenURL: srv.URL})
		rec, err := ex.Refresh(context.Background(), "rt1")
		require.NoError(t, err)

		assert.Equal(t, "at2", rec.AccessToken)
		assert.Equal(t, "rt2", rec.RefreshToken)
		assert.Equal(t, []string{"refresh_token"}, form["grant_type"])
		assert.Equal(t, []string{"rt1"}, form["refresh_token"])
		assert.NotContains(t, form, "client_secret")
	})

	t.Run("invalid_grant surfaces as InvalidGrantError", func(t *testing.T) {
		srv := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant","error_description":"token already rotated"}`)
		})

		ex := NewExchanger(ExchangerConfig{ClientID: "cli-id", TokenURL: srv.URL})
		_, err := ex.Refresh(context.Background(), "stale")

		var igErr *InvalidGrantError
		require.ErrorAs(t, err, &igErr)
		assert.Equal(t, "token already rotated", igErr.Description)
	})

	t.Run("other oauth errors remain retryable network errors", func(t *testing.T) {
		srv := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":"temporarily_unavailable"}`)
		})

		ex := NewExchanger(ExchangerConfig{ClientID: "cli-id", TokenURL: srv.URL})
		_, err := ex.Refresh(context.Background(), "rt")

		var igErr *InvalidGrantError
		assert.False(t, errors.As(err, &igErr), "temporarily_unavailable must not be treated as a dead grant")

		var netErr *NetworkError
		require.ErrorAs(t, err, &netErr)
		assert.Equal(t, "temporarily_unavailable", netErr.OAuthCode)
	})
}

func TestExchanger_Revoke_BestEffort(t *testing.T) {
	t.Run("failure is swallowed", func(t *testing.T) {
		srv := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		ex := NewExchanger(ExchangerConfig{ClientID: "cli-id", TokenURL: srv.URL, RevokeURL: srv.URL})
		// Must not panic or surface anything.
		ex.Revoke(context.Background(), "token", "refresh_token")
	})

	t.Run("sends token and hint", func(t *testing.T) {
		var form map[string][]string
		srv := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			form = r.PostForm
		})

		ex := NewExchanger(ExchangerConfig{ClientID: "cli-id", TokenURL: srv.URL, RevokeURL: srv.URL})
		ex.Revoke(context.Background(), "doomed", "access_token")

		assert.Equal(t, []string{"doomed"}, form["token"])
		assert.Equal(t, []string{"access_token"}, form["token_type_hint"])
		assert.Equal(t, []string{"cli-id"}, form["client_id"])
	})

	t.Run("no configured endpoint is a no-op", func(t *testing.T) {
		ex := NewExchanger(ExchangerConfig{ClientID: "cli-id", TokenURL: "http://127.0.0.1:1/token"})
		ex.Revoke(context.Background(), "token", "")
	})
}
