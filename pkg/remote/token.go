package remote

import (
	"context"
	"strings"
	"sync"
)

// TokenCache holds the bearer credential captured from the live view for the
// rest of the session. It is never written to disk.
type TokenCache struct {
	mu    sync.RWMutex
	token string
}

// NewTokenCache creates a cache, optionally seeded with a token.
func NewTokenCache(seed string) *TokenCache {
	c := &TokenCache{}
	c.Set(seed)
	return c
}

// Set stores a token. Values with or without the "Bearer " prefix are accepted.
// Empty values are ignored.
func (c *TokenCache) Set(token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	if !strings.HasPrefix(token, "Bearer ") {
		token = "Bearer " + token
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Capture stores headerValue when it is a bearer authorization header.
// It reports whether the value was accepted.
func (c *TokenCache) Capture(headerValue string) bool {
	if !strings.HasPrefix(headerValue, "Bearer ") || strings.TrimSpace(strings.TrimPrefix(headerValue, "Bearer ")) == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = headerValue
	return true
}

// Authorization returns the full header value, empty when nothing was captured.
func (c *TokenCache) Authorization() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// HasCredential reports whether a token is available.
func (c *TokenCache) HasCredential(context.Context) bool {
	return c.Authorization() != ""
}
