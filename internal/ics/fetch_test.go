package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	t.Parallel()

	const body = "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cal.ics":
			w.Header().Set("Content-Type", "text/calendar")
			_, _ = w.Write([]byte(body))
		case "/big.ics":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(srv.Client())

	got, err := f.Fetch(context.Background(), srv.URL+"/cal.ics")
	require.NoError(t, err)
	assert.Equal(t, body, string(got))

	_, err = f.Fetch(context.Background(), srv.URL+"/missing.ics?token=secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.NotContains(t, err.Error(), "secret")

	small := NewFetcher(srv.Client())
	small.maxBytes = 16
	_, err = small.Fetch(context.Background(), srv.URL+"/big.ics")
	assert.ErrorContains(t, err, "size limit")
}

func TestFetchRejectsSchemes(t *testing.T) {
	t.Parallel()

	f := NewFetcher(nil)
	for _, raw := range []string{"ftp://example.com/cal.ics", "/etc/passwd", "file:///tmp/x.ics"} {
		_, err := f.Fetch(context.Background(), raw)
		assert.ErrorContains(t, err, "unsupported scheme", raw)
	}
}

func TestFetchHonoursContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFetcher(srv.Client()).Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedactURL(t *testing.T) {
	t.Parallel()

	u, err := url.Parse("https://calendar.example.com/private/abc123/basic.ics?key=s3cret")
	require.NoError(t, err)
	assert.Equal(t, "https://calendar.example.com/...(redacted)", redactURL(u))
	assert.Equal(t, "ics://...(redacted)", redactURL(&url.URL{Path: "x"}))
}
