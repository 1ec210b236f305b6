// Package remote talks to the chat application's backend API on behalf of the
// signed-in user, using the bearer credential captured from the live view.
package remote

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

	"github.com/entrhq/chatsweep/pkg/logging"
	"github.com/entrhq/chatsweep/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("remote")
	if err != nil {
		debugLog.Warnf("Failed to initialize remote logger, using stderr fallback: %v", err)
	}
}

const (
	DefaultBaseURL = "https://chatgpt.com"
	DefaultTimeout = 30 * time.Second
)

// Client is the remote action executor.
type Client struct {
	baseURL string
	tokens  *TokenCache
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New creates a Client. An empty baseURL uses DefaultBaseURL.
func New(baseURL string, tokens *TokenCache, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if tokens == nil {
		tokens = NewTokenCache("")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Tokens returns the credential cache.
func (c *Client) Tokens() *TokenCache {
	return c.tokens
}

// HasCredential reports whether a bearer credential has been captured.
func (c *Client) HasCredential(ctx context.Context) bool {
	return c.tokens.HasCredential(ctx)
}

// Mutate applies action to a conversation with a single PATCH.
func (c *Client) Mutate(ctx context.Context, itemID string, action types.Action) error {
	if itemID == "" {
		return fmt.Errorf("%s: missing conversation id", action)
	}
	payload, err := payloadFor(action)
	if err != nil {
		return err
	}
	path := "/backend-api/conversation/" + url.PathEscape(itemID)
	debugLog.Debugf("PATCH %s (%s)", path, action)
	return c.doJSON(ctx, action.String(), http.MethodPatch, path, payload, nil)
}

// FetchGroupPage fetches one page of a project's conversations. An empty cursor starts at "0".
func (c *Client) FetchGroupPage(ctx context.Context, groupID, cursor string) (types.GroupPage, error) {
	if groupID == "" {
		return types.GroupPage{}, fmt.Errorf("list group: missing group id")
	}
	if cursor == "" {
		cursor = "0"
	}
	path := fmt.Sprintf("/backend-api/gizmos/%s/conversations?cursor=%s", url.PathEscape(groupID), url.QueryEscape(cursor))
	debugLog.Debugf("GET %s", path)

	var resp groupPageResponse
	if err := c.doJSON(ctx, "list group", http.MethodGet, path, nil, &resp); err != nil {
		return types.GroupPage{}, err
	}
	return resp.toPage(), nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body any, out any) error {
	auth := c.tokens.Authorization()
	if auth == "" {
		return types.ErrCredentialMissing
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		debugLog.Warnf("%s %s: HTTP %d", method, path, resp.StatusCode)
		return types.NewRemoteError(op, resp.StatusCode, string(text))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
