package jira

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// searchPageSize is the page size requested from the JQL search.
const searchPageSize = 100

// maxSearchPages bounds token pagination in case the server keeps returning tokens.
const maxSearchPages = 1000

// searchFields is the set of fields requested in search/get queries.
const searchFields = "summary,description,status,priority,issuetype,project,assignee,reporter,parent,labels,created,updated"

// Client provides HTTP access to a Jira instance.
type Client struct {
	URL        string
	Username   string
	APIToken   string
	HTTPClient *http.Client
}

// APIError is a non-2xx response from Jira.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jira API returned %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from Jira.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// NewClient creates a new Jira client.
func NewClient(url, username, apiToken string) *Client {
	return &Client{
		URL:      strings.TrimSuffix(url, "/"),
		Username: username,
		APIToken: apiToken,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

func (c *Client) api(path string) string {
	return c.URL + "/rest/api/3" + path
}

func issuePath(key, suffix string) string {
	return "/issue/" + url.PathEscape(key) + suffix
}

// SearchIssues runs jql and returns all matching issues, following nextPageToken.
func (c *Client) SearchIssues(ctx context.Context, jql string) ([]Issue, error) {
	var all []Issue
	token := ""
	for page := 0; ; page++ {
		if page >= maxSearchPages {
			return nil, fmt.Errorf("search issues: pagination limit exceeded after %d pages", maxSearchPages)
		}
		params := url.Values{
			"jql":        {jql},
			"fields":     {searchFields},
			"maxResults": {strconv.Itoa(searchPageSize)},
		}
		if token != "" {
			params.Set("nextPageToken", token)
		}

		body, err := c.doRequest(ctx, http.MethodGet, c.api("/search/jql")+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("search issues: %w", err)
		}
		var result SearchResult
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("parse search response: %w", err)
		}
		all = append(all, result.Issues...)

		if result.NextPageToken == "" || result.IsLast {
			return all, nil
		}
		token = result.NextPageToken
	}
}

// GetIssue fetches a single Jira issue by key (e.g., "PROJ-123").
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	body, err := c.doRequest(ctx, http.MethodGet, c.api(issuePath(key, "")+"?fields="+searchFields), nil)
	if err != nil {
		return nil, fmt.Errorf("get issue %s: %w", key, err)
	}
	var issue Issue
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, fmt.Errorf("parse issue response: %w", err)
	}
	return &issue, nil
}

// CreateIssue creates an issue from fields ("project", "summary", "issuetype", ...).
func (c *Client) CreateIssue(ctx context.Context, fields map[string]any) (*CreatedIssue, error) {
	body, err := c.doRequest(ctx, http.MethodPost, c.api("/issue"), map[string]any{"fields": fields})
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}
	var created CreatedIssue
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("parse create response: %w", err)
	}
	return &created, nil
}

// UpdateIssue writes fields on an existing issue.
func (c *Client) UpdateIssue(ctx context.Context, key string, fields map[string]any) error {
	if _, err := c.doRequest(ctx, http.MethodPut, c.api(issuePath(key, "")), map[string]any{"fields": fields}); err != nil {
		return fmt.Errorf("update issue %s: %w", key, err)
	}
	return nil
}

// GetTransitions lists the workflow transitions available on an issue.
func (c *Client) GetTransitions(ctx context.Context, key string) ([]Transition, error) {
	body, err := c.doRequest(ctx, http.MethodGet, c.api(issuePath(key, "/transitions")), nil)
	if err != nil {
		return nil, fmt.Errorf("get transitions for %s: %w", key, err)
	}
	var result struct {
		Transitions []Transition `json:"transitions"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse transitions response: %w", err)
	}
	return result.Transitions, nil
}

// DoTransition applies transition id to an issue.
func (c *Client) DoTransition(ctx context.Context, key, id string) error {
	payload := map[string]any{"transition": map[string]string{"id": id}}
	if _, err := c.doRequest(ctx, http.MethodPost, c.api(issuePath(key, "/transitions")), payload); err != nil {
		return fmt.Errorf("transition issue %s: %w", key, err)
	}
	return nil
}

// AssignIssue sets the assignee by account id; an empty id unassigns.
func (c *Client) AssignIssue(ctx context.Context, key, accountID string) error {
	payload := map[string]any{"accountId": nil}
	if accountID != "" {
		payload["accountId"] = accountID
	}
	if _, err := c.doRequest(ctx, http.MethodPut, c.api(issuePath(key, "/assignee")), payload); err != nil {
		return fmt.Errorf("assign issue %s: %w", key, err)
	}
	return nil
}

// FindUsers searches users by name, display name or email.
func (c *Client) FindUsers(ctx context.Context, query string) ([]UserField, error) {
	body, err := c.doRequest(ctx, http.MethodGet, c.api("/user/search?query="+url.QueryEscape(query)), nil)
	if err != nil {
		return nil, fmt.Errorf("search users %q: %w", query, err)
	}
	var users []UserField
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("parse user search response: %w", err)
	}
	return users, nil
}

// AddComment posts a plain-text comment.
func (c *Client) AddComment(ctx context.Context, key, text string) error {
	payload := map[string]any{"body": PlainTextToADF(text)}
	if _, err := c.doRequest(ctx, http.MethodPost, c.api(issuePath(key, "/comment")), payload); err != nil {
		return fmt.Errorf("comment on %s: %w", key, err)
	}
	return nil
}

// doRequest executes an authenticated HTTP request and returns the response body.
func (c *Client) doRequest(ctx context.Context, method, apiURL string, payload any) ([]byte, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("jira URL not configured")
	}
	if c.APIToken == "" {
		return nil, fmt.Errorf("jira API token not configured")
	}

	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.setAuth(req)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "issueboard/1.0")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// PUT and transitions return 204 No Content on success
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// setAuth uses basic auth when a username is configured (Jira Cloud) and a
// bearer personal access token otherwise (Jira Server/Data Center).
func (c *Client) setAuth(req *http.Request) {
	if c.Username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.APIToken))
		req.Header.Set("Authorization", "Basic "+auth)
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.APIToken)
}
