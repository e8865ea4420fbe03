package daemonctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shortforge/internal/api"
	"shortforge/internal/config"
)

// ErrNotRunning reports that no daemon answered on the configured address.
var ErrNotRunning = errors.New("shortforge daemon is not running")

// Client talks to the daemon HTTP API.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient targets the daemon configured in cfg.
func NewClient(cfg *config.Config) (*Client, error) {
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil, errors.New("api.bind is not configured")
	}
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api.bind %q: %w", bind, err)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return &Client{
		base:  "http://" + net.JoinHostPort(host, port),
		token: strings.TrimSpace(cfg.API.Token),
		http:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// NewClientURL targets an explicit base URL.
func NewClientURL(base, token string) *Client {
	return &Client{
		base:  strings.TrimRight(base, "/"),
		token: token,
		http:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Status retrieves the daemon status.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var resp api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp)
	return resp, err
}

// Jobs lists jobs, optionally filtered by status.
func (c *Client) Jobs(ctx context.Context, statuses ...string) ([]api.Job, error) {
	path := "/api/jobs"
	if len(statuses) > 0 {
		query := url.Values{}
		for _, status := range statuses {
			query.Add("status", status)
		}
		path += "?" + query.Encode()
	}
	var resp api.JobListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Job fetches one job.
func (c *Client) Job(ctx context.Context, id string) (api.Job, error) {
	var resp api.JobResponse
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &resp)
	return resp.Item, err
}

// SubmitJob queues a job.
func (c *Client) SubmitJob(ctx context.Context, req api.SubmitJobRequest) (api.Job, error) {
	var resp api.JobResponse
	err := c.do(ctx, http.MethodPost, "/api/jobs", req, &resp)
	return resp.Item, err
}

// RenderJob starts rendering a job awaiting review.
func (c *Client) RenderJob(ctx context.Context, id string) (api.Job, error) {
	var resp api.JobResponse
	err := c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/render", nil, &resp)
	return resp.Item, err
}

// WaitForJob polls id until its status satisfies done, reporting each change
// to onUpdate.
func (c *Client) WaitForJob(ctx context.Context, id string, interval time.Duration, done func(api.Job) bool, onUpdate func(api.Job)) (api.Job, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var last api.Job
	for {
		job, err := c.Job(ctx, id)
		if err != nil {
			return last, err
		}
		if onUpdate != nil && (job.Progress != last.Progress || job.Status != last.Status || job.Step != last.Step) {
			onUpdate(job)
		}
		last = job
		if done(job) {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}

// APIError is a non-2xx daemon response.
type APIError struct {
	StatusCode int
	Message    string
	Hint       string
}

func (e *APIError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s (hint: %s)", e.Message, e.Hint)
	}
	return e.Message
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return fmt.Errorf("%w at %s", ErrNotRunning, c.base)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr api.ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &apiErr) != nil || apiErr.Error == "" {
			apiErr.Error = strings.TrimSpace(string(data))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error, Hint: apiErr.Hint}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
