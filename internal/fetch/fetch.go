package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/session"
)

// Fetcher retrieves the text body of a registration page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher fetches pages with an optional session Cookie header.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
	Cookies   session.CookieSource
}

func NewHTTPFetcher(timeout time.Duration, userAgent string, cookies session.CookieSource) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPFetcher{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
		Cookies:   cookies,
	}
}

// Fetch GETs the URL and returns the body text. Errors carry the
// message persisted as the target's last_error: "http: ..." for
// transport failures, "HTTP <status>" for non-2xx responses and
// "read body: ..." for body read failures.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("http: %v", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	if f.Cookies != nil {
		if c, ok := f.Cookies.CookieHeader(); ok {
			req.Header.Set("Cookie", c)
		}
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("HTTP %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %v", err)
	}
	return string(body), nil
}
