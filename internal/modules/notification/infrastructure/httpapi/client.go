package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/attendify/notify-agent/internal/modules/notification/domain"
)

const (
	DefaultTimeout = 10 * time.Second

	listPath    = "/notifications"
	readPath    = "/notifications/read/"
	readAllPath = "/notifications/read-all"

	maxBodyBytes = 4 << 20
)

// Client talks to the backend notification REST endpoints.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

// WithToken sends a static bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List fetches the full notification set. The endpoint must answer with a
// bare JSON array; any other shape is treated as a contract violation.
func (c *Client) List(ctx context.Context) ([]domain.Notification, error) {
	resp, err := c.do(ctx, http.MethodGet, listPath)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read notification list: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '[' {
		return nil, fmt.Errorf("%w: listing is not a JSON array", domain.ErrContractViolation)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrContractViolation, err)
	}

	list := make([]domain.Notification, 0, len(raw))
	for i, item := range raw {
		n, err := domain.DecodeNotification(item)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %w", domain.ErrContractViolation, i, err)
		}
		list = append(list, n)
	}
	return list, nil
}

func (c *Client) MarkAsRead(ctx context.Context, id domain.ID) error {
	return c.post(ctx, readPath+url.PathEscape(string(id)))
}

func (c *Client) MarkAllAsRead(ctx context.Context) error {
	return c.post(ctx, readAllPath)
}

func (c *Client) post(ctx context.Context, path string) error {
	resp, err := c.do(ctx, http.MethodPost, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	return checkStatus(resp)
}

func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s returned %d", domain.ErrUnexpectedStatus,
			resp.Request.Method, resp.Request.URL.Path, resp.StatusCode)
	}
	return nil
}
