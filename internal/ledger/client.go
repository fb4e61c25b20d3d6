// Package ledger is a client for the ledger node REST API: resource reads
// and view-function calls.
package ledger

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

	"github.com/starford/ledgernotes/internal/apperr"
)

// ErrNotFound reports that the requested account or resource does not exist.
var ErrNotFound = fmt.Errorf("ledger: %w", apperr.ErrNotFound)

// maxBodySize caps response bodies read from the node.
const maxBodySize = 16 << 20

// Client talks to one ledger node.
type Client struct {
	base   *url.URL
	apiKey string
	http   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key as a bearer credential on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client for the node REST API rooted at nodeURL
// (for example https://node.example/v1).
func NewClient(nodeURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(nodeURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("ledger: invalid node url %q: %w", nodeURL, apperr.ErrConfig)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{base: u, http: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// apiError is the error body returned by the node.
type apiError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

// Resource reads the resource of type resourceType stored at address and
// returns its decoded JSON body. Missing accounts and resources yield
// ErrNotFound.
func (c *Client) Resource(ctx context.Context, address, resourceType string) (any, error) {
	endpoint := c.base.JoinPath("accounts", address, "resource", resourceType)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: build request: %w", err)
	}
	return c.do(req)
}

type viewRequest struct {
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []any    `json:"arguments"`
}

// View calls a read-only view function and returns its result values.
func (c *Client) View(ctx context.Context, function string, args ...any) ([]any, error) {
	if args == nil {
		args = []any{}
	}
	body, err := json.Marshal(viewRequest{Function: function, TypeArguments: []string{}, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("ledger: encode view request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.JoinPath("view").String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ledger: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	out, err := c.do(req)
	if err != nil {
		return nil, err
	}
	values, ok := out.([]any)
	if !ok {
		return nil, fmt.Errorf("ledger: view %s: unexpected result type %T", function, out)
	}
	return values, nil
}

func (c *Client) do(req *http.Request) (any, error) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("ledger: read body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 300 {
		var ae apiError
		_ = json.Unmarshal(data, &ae)
		if isNotFoundMessage(ae.Message) || isNotFoundMessage(ae.ErrorCode) {
			return nil, ErrNotFound
		}
		msg := ae.Message
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return nil, fmt.Errorf("ledger: %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, msg)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("ledger: decode body: %w", err)
	}
	return out, nil
}

// IsNotFound reports whether err means the account or resource is absent,
// including transport errors whose text carries a not-found indicator.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, apperr.ErrNotFound) || isNotFoundMessage(err.Error())
}

func isNotFoundMessage(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "not found") || strings.Contains(s, "not_found")
}
