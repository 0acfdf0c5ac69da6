package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"trellis/internal/auth"
	"trellis/pkg/logging"
)

// defaultRequestTimeout bounds a single workspace API request.
const defaultRequestTimeout = 30 * time.Second

// APIError is a non-2xx response from the workspace API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("workspace API error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("workspace API error (HTTP %d)", e.StatusCode)
}

// Client talks to the trellis workspace API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates an authenticated workspace client. The oauth2 transport
// fetches a fresh bearer token from the provider for every request, so
// expired tokens are refreshed before they ever reach the wire.
func NewClient(ctx context.Context, baseURL string, provider TokenProvider) *Client {
	httpClient := oauth2.NewClient(ctx, TokenSource(ctx, provider))
	httpClient.Timeout = defaultRequestTimeout

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// Viewer returns the authenticated user.
func (c *Client) Viewer(ctx context.Context) (*Viewer, error) {
	var viewer Viewer
	if err := c.do(ctx, http.MethodGet, "/v1/viewer", nil, &viewer); err != nil {
		return nil, err
	}
	return &viewer, nil
}

// ListProjects returns the projects visible to the authenticated user.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var out struct {
		Projects []Project `json:"projects"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/projects", nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

// ListIssues returns the issues in the given project. An empty projectID
// lists issues across all projects.
func (c *Client) ListIssues(ctx context.Context, projectID string) ([]Issue, error) {
	path := "/v1/issues"
	if projectID != "" {
		path += "?project_id=" + projectID
	}

	var out struct {
		Issues []Issue `json:"issues"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Issues, nil
}

// CreateIssue creates an issue and returns it as stored by the API.
func (c *Client) CreateIssue(ctx context.Context, req CreateIssueRequest) (*Issue, error) {
	var issue Issue
	if err := c.do(ctx, http.MethodPost, "/v1/issues", req, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logging.Debug("Workspace", "%s %s", method, path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Token fetch failures inside the transport arrive wrapped in
		// *url.Error; unwrap so callers can match the auth sentinels.
		return fmt.Errorf("workspace request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// The token was buffer-fresh when the request left, so a 401 means
		// the session is invalid server-side.
		return fmt.Errorf("workspace API rejected the session: %w", auth.ErrReauthenticationRequired)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode workspace response: %w", err)
	}
	return nil
}

func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}

	var doc struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &doc) == nil {
		if doc.Message != "" {
			return doc.Message
		}
		if doc.Error != "" {
			return doc.Error
		}
	}
	return string(bytes.TrimSpace(data))
}
