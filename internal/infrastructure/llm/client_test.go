package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"botty/internal/application/port"
)

func TestCompleteReturnsContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"action\":\"hold\"}"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	got, err := c.Complete(context.Background(), "gpt-4o-mini", "analyze", true)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != `{"action":"hold"}` {
		t.Errorf("unexpected content %q", got)
	}
}

func TestCompleteRateLimitSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit exceeded"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Complete(context.Background(), "gpt-4o-mini", "analyze", false)

	var apiErr *port.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *port.APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", apiErr.StatusCode)
	}
	if !port.IsRateLimited(err) {
		t.Errorf("expected classification as rate-limited")
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if _, err := c.Complete(context.Background(), "gpt-4o-mini", "analyze", false); err == nil {
		t.Errorf("expected error on empty choices")
	}
}
