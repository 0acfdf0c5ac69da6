package workspace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trellis/internal/auth"
)

type staticProvider struct {
	token string
	err   error
	calls int
}

func (p *staticProvider) GetValidAccessToken(ctx context.Context) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.token, nil
}

func newTestAPI(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestClient_BearerHeaderFromProvider(t *testing.T) {
	var gotAuth string
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(Viewer{ID: "u1", Name: "Sam", Email: "sam@example.com"})
	})

	provider := &staticProvider{token: "tok-123"}
	client := NewClient(context.Background(), api.URL, provider)

	viewer, err := client.Viewer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "Sam", viewer.Name)
	assert.Equal(t, 1, provider.calls)
}

func TestClient_ProviderErrorSurfacesUnwrapped(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the API without a token")
	})

	provider := &staticProvider{err: auth.ErrNoCredentials}
	client := NewClient(context.Background(), api.URL, provider)

	_, err := client.ListProjects(context.Background())
	assert.ErrorIs(t, err, auth.ErrNoCredentials)
}

func TestClient_UnauthorizedMeansReauthentication(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	client := NewClient(context.Background(), api.URL, &staticProvider{token: "revoked"})

	_, err := client.Viewer(context.Background())
	assert.ErrorIs(t, err, auth.ErrReauthenticationRequired)
}

func TestClient_ListIssues(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/issues", r.URL.Path)
		assert.Equal(t, "proj-1", r.URL.Query().Get("project_id"))
		json.NewEncoder(w).Encode(map[string]any{
			"issues": []Issue{
				{ID: "i1", Key: "TRL-1", Title: "First", State: "open"},
				{ID: "i2", Key: "TRL-2", Title: "Second", State: "done"},
			},
		})
	})

	client := NewClient(context.Background(), api.URL, &staticProvider{token: "t"})

	issues, err := client.ListIssues(context.Background(), "proj-1")
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "TRL-1", issues[0].Key)
}

func TestClient_CreateIssue(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req CreateIssueRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Fix login loop", req.Title)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Issue{ID: "i9", Key: "TRL-9", Title: req.Title, State: "open"})
	})

	client := NewClient(context.Background(), api.URL, &staticProvider{token: "t"})

	issue, err := client.CreateIssue(context.Background(), CreateIssueRequest{
		ProjectID: "proj-1",
		Title:     "Fix login loop",
	})
	require.NoError(t, err)
	assert.Equal(t, "TRL-9", issue.Key)
}

func TestClient_APIErrorCarriesServerMessage(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "title is required"})
	})

	client := NewClient(context.Background(), api.URL, &staticProvider{token: "t"})

	_, err := client.CreateIssue(context.Background(), CreateIssueRequest{ProjectID: "p"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "title is required")
}
