package acl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebulter/quote-service/internal/adapters/clients"
	"github.com/ebulter/quote-service/internal/domain"
	"github.com/ebulter/quote-service/internal/platform/config"
)

func newZenClient(t *testing.T, baseURL string) *ZenClient {
	t.Helper()

	client, err := clients.New(&clients.Config{
		BaseURL:     baseURL,
		ServiceName: "zenquotes",
		Timeout:     2 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     1,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     100 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   2,
			Timeout:       time.Second,
			HalfOpenLimit: 1,
		},
	})
	require.NoError(t, err)

	return NewZenClient(client)
}

func TestZenClient_FetchQuotes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/quotes", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"q": "The obstacle is the way.", "a": "Marcus Aurelius", "h": "<blockquote>...</blockquote>"},
			{"q": "Waste no more time arguing what a good man should be.", "a": "Marcus Aurelius"}
		]`))
	}))
	defer server.Close()

	zen := newZenClient(t, server.URL)

	quotes, err := zen.FetchQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	assert.Equal(t, "The obstacle is the way.", quotes[0].Text)
	assert.Equal(t, "Marcus Aurelius", quotes[0].Author)
	// Feed entries carry no catalog id.
	assert.Zero(t, quotes[0].ID)
}

func TestZenClient_FetchQuotes_SkipsRateLimitNotice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"q": "Too many requests. Obtain an auth key for unlimited access.", "a": "zenquotes.io"},
			{"q": "A real quote.", "a": "Somebody"}
		]`))
	}))
	defer server.Close()

	zen := newZenClient(t, server.URL)

	quotes, err := zen.FetchQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "A real quote.", quotes[0].Text)
}

func TestZenClient_FetchQuotes_SkipsEmptyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"q": "   ", "a": "Nobody"},
			{"q": "Kept.", "a": "Somebody"}
		]`))
	}))
	defer server.Close()

	zen := newZenClient(t, server.URL)

	quotes, err := zen.FetchQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "Kept.", quotes[0].Text)
}

func TestZenClient_FetchQuotes_EmptyAuthorBecomesUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"q": "Anonymous wisdom.", "a": "  "}]`))
	}))
	defer server.Close()

	zen := newZenClient(t, server.URL)

	quotes, err := zen.FetchQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "Unknown", quotes[0].Author)
}

func TestZenClient_FetchQuotes_MalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not": "an array"}`))
	}))
	defer server.Close()

	zen := newZenClient(t, server.URL)

	_, err := zen.FetchQuotes(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err))
}

func TestZenClient_FetchQuotes_RateLimitedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	zen := newZenClient(t, server.URL)

	_, err := zen.FetchQuotes(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err))
}

func TestZenClient_FetchQuotes_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	zen := newZenClient(t, server.URL)

	_, err := zen.FetchQuotes(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err))
}

func TestZenClient_Check(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	zen := newZenClient(t, failing.URL)

	assert.Equal(t, "zenquotes", zen.Name())
	assert.NoError(t, zen.Check(context.Background()), "closed circuit reports healthy")

	// Trip the breaker.
	_, _ = zen.FetchQuotes(context.Background())
	_, _ = zen.FetchQuotes(context.Background())
	require.Equal(t, clients.StateOpen, zen.Client().CircuitState())

	err := zen.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
}
