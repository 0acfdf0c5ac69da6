package workspace

import "time"

// Viewer is the authenticated user, as reported by the API.
type Viewer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Project is a workspace project.
type Project struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Issue is a workspace issue.
type Issue struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	ProjectID string    `json:"project_id"`
	CreatedAt time.Time `json:"created_at"`
	URL       string    `json:"url"`
}

// CreateIssueRequest is the payload for creating an issue.
type CreateIssueRequest struct {
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}
