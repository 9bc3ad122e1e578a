// Package dashboard is a Go client for the lead conversation API. It models
// the client dashboard and the admin conversation view: loading, access
// denial, optimistic sends and interval polling.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wolfman30/sitecraft/internal/messages"
)

// DefaultRequestTimeout bounds every API call.
const DefaultRequestTimeout = 15 * time.Second

var (
	// ErrAccessDenied is returned when the lead id and token do not match.
	ErrAccessDenied = errors.New("dashboard: access denied")
	// ErrUnauthorized is returned when the admin token is missing or rejected.
	ErrUnauthorized = errors.New("dashboard: admin token rejected")
)

// NotFoundError is returned by admin lookups for unknown leads.
type NotFoundError struct {
	Redirect string
}

func (e *NotFoundError) Error() string {
	return "dashboard: lead not found"
}

// APIError carries a non-success response the client does not map to a sentinel.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dashboard: api returned %d: %s", e.Status, e.Message)
}

// Lead is the lead summary shown above a thread.
type Lead struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email"`
	BusinessName        string    `json:"business_name"`
	Category            string    `json:"category"`
	WebsiteGoal         string    `json:"website_goal"`
	Description         string    `json:"description,omitempty"`
	InspirationTemplate string    `json:"inspiration_template,omitempty"`
	DashboardURL        string    `json:"dashboard_url,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// Message is a thread entry as returned by the API.
type Message = messages.Message

type threadPayload struct {
	Lead     *Lead      `json:"lead"`
	Messages []*Message `json:"messages"`
}

type leadListPayload struct {
	Leads []*Lead `json:"leads"`
	Total int     `json:"total"`
}

// APIClient talks to the HTTP API.
type APIClient struct {
	baseURL    string
	adminToken string
	http       *http.Client
}

// ClientOption customizes an APIClient.
type ClientOption func(*APIClient)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(a *APIClient) { a.http = c }
}

// WithAdminToken sets the bearer token for the admin API.
func WithAdminToken(token string) ClientOption {
	return func(a *APIClient) { a.adminToken = strings.TrimSpace(token) }
}

// NewAPIClient creates a client rooted at baseURL.
func NewAPIClient(baseURL string, opts ...ClientOption) *APIClient {
	c := &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Project loads a lead and its thread using the lead's access token.
func (c *APIClient) Project(ctx context.Context, leadID, token string) (*Lead, []*Message, error) {
	var out threadPayload
	if err := c.do(ctx, http.MethodGet, projectPath(leadID, token, ""), nil, false, &out); err != nil {
		return nil, nil, err
	}
	return out.Lead, out.Messages, nil
}

// ProjectMessages re-fetches the thread for polling.
func (c *APIClient) ProjectMessages(ctx context.Context, leadID, token string) ([]*Message, error) {
	var out threadPayload
	if err := c.do(ctx, http.MethodGet, projectPath(leadID, token, "/messages"), nil, false, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// SendProjectMessage posts a client message.
func (c *APIClient) SendProjectMessage(ctx context.Context, leadID, token, content string) (*Message, error) {
	var out Message
	if err := c.do(ctx, http.MethodPost, projectPath(leadID, token, "/messages"), map[string]string{"content": content}, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminLeads lists every lead newest first.
func (c *APIClient) AdminLeads(ctx context.Context) ([]*Lead, error) {
	var out leadListPayload
	if err := c.do(ctx, http.MethodGet, "/api/admin/leads", nil, true, &out); err != nil {
		return nil, err
	}
	return out.Leads, nil
}

// AdminLead loads a lead and its thread through the admin API.
func (c *APIClient) AdminLead(ctx context.Context, leadID string) (*Lead, []*Message, error) {
	var out threadPayload
	if err := c.do(ctx, http.MethodGet, "/api/admin/leads/"+url.PathEscape(leadID), nil, true, &out); err != nil {
		return nil, nil, err
	}
	return out.Lead, out.Messages, nil
}

// SendAdminMessage posts an admin reply.
func (c *APIClient) SendAdminMessage(ctx context.Context, leadID, content string) (*Message, error) {
	var out Message
	path := "/api/admin/leads/" + url.PathEscape(leadID) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"content": content}, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func projectPath(leadID, token, suffix string) string {
	return "/api/projects/" + url.PathEscape(leadID) + suffix + "?token=" + url.QueryEscape(token)
}

func (c *APIClient) do(ctx context.Context, method, path string, body any, admin bool, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("dashboard: encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("dashboard: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin && c.adminToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.adminToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("dashboard: %s %s: %w", method, strings.SplitN(path, "?", 2)[0], err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("dashboard: decode response: %w", err)
		}
		return nil
	}

	var apiErr struct {
		Error    string `json:"error"`
		Redirect string `json:"redirect"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound && !admin:
		return ErrAccessDenied
	case resp.StatusCode == http.StatusNotFound && apiErr.Redirect != "":
		return &NotFoundError{Redirect: apiErr.Redirect}
	}
	return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
}
