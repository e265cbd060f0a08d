package opendota

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/riskibarqy/opendota-monitor/internal/platform/resilience"
	"github.com/riskibarqy/opendota-monitor/internal/usecase"
)

func TestClientPlayerRecentMatches_SendsAPIKeyAndMapsPayload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/players/111/recentMatches" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("api_key"); got != "secret-key" {
			t.Fatalf("unexpected api_key: %s", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"match_id": 100, "start_time": 1755690000, "version": 21, "hero_id": 14},
			{"match_id": 101, "start_time": 1755693600, "version": null, "hero_id": 5}
		]`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL,
		APIKey:         "secret-key",
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	matches, err := client.PlayerRecentMatches(context.Background(), "111")
	if err != nil {
		t.Fatalf("fetch recent matches: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != 100 || matches[1].ID != 101 {
		t.Fatalf("unexpected match ids: %d, %d", matches[0].ID, matches[1].ID)
	}
	if matches[0].StartTime != 1755690000 {
		t.Fatalf("unexpected start time: %d", matches[0].StartTime)
	}
	if !matches[0].Parsed() {
		t.Fatalf("match 100 has a version, expected parsed")
	}
	if matches[1].Parsed() {
		t.Fatalf("match 101 has null version, expected unparsed")
	}
}

func TestClientPlayerRecentMatches_DropsRowsWithoutMatchID(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"match_id": 0}, {"match_id": 100, "start_time": 1}]`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL,
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	matches, err := client.PlayerRecentMatches(context.Background(), "111")
	if err != nil {
		t.Fatalf("fetch recent matches: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != 100 {
		t.Fatalf("expected only match 100, got %v", matches)
	}
}

func TestClientPlayerRecentMatches_EmptyAccountID(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	_, err := client.PlayerRecentMatches(context.Background(), "  ")
	if !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestClientPlayerRecentMatches_PermanentStatusNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"Not Found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL,
		MaxRetries:     2,
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	_, err := client.PlayerRecentMatches(context.Background(), "111")
	if err == nil {
		t.Fatalf("expected error for 404 response")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("404 must not be retried, got %d calls", got)
	}
}

func TestClientPlayerRecentMatches_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "upstream hiccup", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"match_id": 100, "start_time": 1}]`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL,
		MaxRetries:     1,
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	matches, err := client.PlayerRecentMatches(context.Background(), "111")
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match after retry, got %d", len(matches))
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestClientRequestParse_PostsToRequestEndpoint(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/request/100" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"job":{"jobId":12345}}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL,
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	if err := client.RequestParse(context.Background(), "100"); err != nil {
		t.Fatalf("request parse: %v", err)
	}
}

func TestClientRequestParse_NonSuccessStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL,
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	err := client.RequestParse(context.Background(), "100")
	if err == nil {
		t.Fatalf("expected error for 429 response")
	}
	if !strings.Contains(err.Error(), "status=429") {
		t.Fatalf("error should carry the status, got: %v", err)
	}
}

func TestClientRequestParse_EmptyMatchID(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	if err := client.RequestParse(context.Background(), ""); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestClientRequestParse_RedactsAPIKeyInErrors(t *testing.T) {
	t.Parallel()

	// Point at a server that is already closed so the transport fails and
	// embeds the full request URL in its error string.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client := NewClient(ClientConfig{
		BaseURL:        baseURL,
		APIKey:         "secret-key",
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	err := client.RequestParse(context.Background(), "100")
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Fatalf("api key leaked into error: %v", err)
	}
}

func TestClientCircuitBreaker_OpensAfterTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient: srv.Client(),
		BaseURL:    srv.URL,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
		},
	})

	if _, err := client.PlayerRecentMatches(context.Background(), "111"); err == nil {
		t.Fatalf("expected first call to fail")
	}

	_, err := client.PlayerRecentMatches(context.Background(), "111")
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected circuit rejection, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("open circuit must not reach the provider, got %d calls", got)
	}
}
