// Package session holds the FFE session cookies captured by the UI's
// login flow. The watcher only ever reads the current header; the UI
// replaces it whenever the user re-authenticates.
package session

import (
	"strings"
	"sync"
)

// CookieSource yields the Cookie header to attach to page fetches.
// ok is false while no session has been captured.
type CookieSource interface {
	CookieHeader() (header string, ok bool)
}

// Cookies is a process-wide cookie cell safe for concurrent use.
type Cookies struct {
	mu     sync.RWMutex
	header string
}

func NewCookies() *Cookies { return &Cookies{} }

// Set rebuilds the header from raw Set-Cookie style strings. Only the
// leading name=value pair of each entry is kept; attributes (Path,
// Domain, Expires, ...) are stripped.
func (c *Cookies) Set(raw []string) int {
	var pairs []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		pair := strings.TrimSpace(strings.SplitN(s, ";", 2)[0])
		if pair == "" {
			continue
		}
		pairs = append(pairs, pair)
	}

	c.mu.Lock()
	c.header = strings.Join(pairs, "; ")
	c.mu.Unlock()
	return len(pairs)
}

// Clear drops the captured session.
func (c *Cookies) Clear() {
	c.mu.Lock()
	c.header = ""
	c.mu.Unlock()
}

func (c *Cookies) CookieHeader() (string, bool) {
	c.mu.RLock()
	h := c.header
	c.mu.RUnlock()
	if strings.TrimSpace(h) == "" {
		return "", false
	}
	return h, true
}

// Connected reports whether a non-empty session is present.
func (c *Cookies) Connected() bool {
	_, ok := c.CookieHeader()
	return ok
}
