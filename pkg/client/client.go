package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kurihiro0119/github-access-portal/internal/domain"
)

// Client is the API client for the github-access-portal backend
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithToken sends token as a bearer token on every request
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new API client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the backend
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return e.Message
}

// ListOptions narrows ListRequests
type ListOptions struct {
	Project        string
	GithubIdentity string
	Limit          int
}

// GrantAccess submits an access request
func (c *Client) GrantAccess(ctx context.Context, input domain.GrantInput) (*domain.GrantResponse, error) {
	var response domain.GrantResponse
	if err := c.do(ctx, http.MethodPost, "/api/github-access/access", nil, input, http.StatusCreated, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// ListRequests retrieves recorded access requests, newest first
func (c *Client) ListRequests(ctx context.Context, opts ListOptions) ([]*domain.AccessRequest, error) {
	params := url.Values{}
	if opts.Project != "" {
		params.Set("project", opts.Project)
	}
	if opts.GithubIdentity != "" {
		params.Set("githubIdentity", opts.GithubIdentity)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var response struct {
		Items []*domain.AccessRequest `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/github-access/access", params, nil, http.StatusOK, &response); err != nil {
		return nil, err
	}
	return response.Items, nil
}

// GetRequest retrieves one access request
func (c *Client) GetRequest(ctx context.Context, id string) (*domain.AccessRequest, error) {
	var response struct {
		Data *domain.AccessRequest `json:"data"`
	}
	path := "/api/github-access/access/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, http.StatusOK, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, http.StatusOK, &response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body interface{}, wantStatus int, result interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return decodeError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message = body.Error
		apiErr.Code = body.Code
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
