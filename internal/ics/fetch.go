package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	appLog "eventcal/internal/log"
)

// DefaultMaxBytes caps a downloaded calendar.
const DefaultMaxBytes = 8 << 20

// Fetcher downloads .ics payloads over HTTP(S).
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher returns a Fetcher with a 15s timeout. A nil client selects
// that default.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client, maxBytes: DefaultMaxBytes}
}

// Fetch GETs rawURL and returns the body. Non-200 responses and bodies over
// the size cap are errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("ics url: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
	case "webcal":
		// webcal:// is plain HTTP(S) by convention.
		u.Scheme = "https"
	default:
		return nil, fmt.Errorf("ics url: unsupported scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/calendar, */*;q=0.5")

	appLog.Info("ics fetch start", "url", redactURL(u))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", redactURL(u), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", redactURL(u), resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", redactURL(u), err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, errors.New("fetch " + redactURL(u) + ": body exceeds size limit")
	}

	appLog.Info("ics fetch success", "url", redactURL(u), "bytes", len(body))
	return body, nil
}

// redactURL keeps only scheme and host: subscription URLs often carry a
// secret token in the path or query.
func redactURL(u *url.URL) string {
	if u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
