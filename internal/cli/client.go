// Package cli implements the console side of the NeonDDoS HTTP API: the
// login client and the login form submitter.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/neonddos/console/internal/protocol"
)

// DefaultTimeout bounds every API request.
const DefaultTimeout = 10 * time.Second

// Client talks to the server's HTTP API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	session *http.Cookie
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL *url.URL, timeout time.Duration) (*Client, error) {
	if baseURL == nil {
		return nil, fmt.Errorf("server URL is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	u := *baseURL
	u.Path = strings.TrimSuffix(u.Path, "/")

	return &Client{
		baseURL: &u,
		http:    &http.Client{Jar: jar, Timeout: timeout},
	}, nil
}

// Host is the key sessions for this server are stored under.
func (c *Client) Host() string {
	return c.baseURL.Host
}

// URL resolves path against the server.
func (c *Client) URL(path string) string {
	return c.baseURL.String() + path
}

// call posts body as JSON to path and decodes the JSON answer into out.
// The cookies set by the response are returned.
func (c *Client) call(ctx context.Context, path string, body, out interface{}) ([]*http.Cookie, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(path), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("failed to parse response (HTTP %d): %w", resp.StatusCode, err)
	}
	return resp.Cookies(), nil
}

// Login submits credentials. A decoded answer is returned even when it
// reports failure; err is only set when no answer could be obtained.
func (c *Client) Login(ctx context.Context, username, password string) (*protocol.LoginResponse, error) {
	var result protocol.LoginResponse
	req := protocol.LoginRequest{Username: username, Password: password}
	cookies, err := c.call(ctx, protocol.LoginPath, req, &result)
	if err != nil {
		return nil, err
	}
	for _, ck := range cookies {
		if ck.Name == protocol.SessionCookie {
			c.session = ck
		}
	}
	return &result, nil
}

// SessionCookie returns the session cookie the server issued, if any.
func (c *Client) SessionCookie() *http.Cookie {
	if c.session != nil {
		return c.session
	}
	for _, ck := range c.http.Jar.Cookies(c.baseURL) {
		if ck.Name == protocol.SessionCookie {
			return ck
		}
	}
	return nil
}
