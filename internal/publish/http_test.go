package publish

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPPublisherPublishDay(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := HTTPPublisher{BaseURL: srv.URL, APIKey: "k1", Client: srv.Client()}
	latency, err := p.PublishDay(context.Background(), DaySummary{Restaurant: "r1", Date: "2025-03-03"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if latency < 0 {
		t.Fatalf("expected non-negative latency, got %d", latency)
	}
	if gotPath != "/v1/days" {
		t.Fatalf("expected POST to /v1/days, got %s", gotPath)
	}
	if gotAuth != "Bearer k1" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
}

func TestHTTPPublisherUsesInjectedClient(t *testing.T) {
	calls := 0
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("boom")
	})}
	p := HTTPPublisher{BaseURL: "http://dashboard.local", Client: client}
	if _, err := p.PublishDay(context.Background(), DaySummary{}); err == nil {
		t.Fatalf("expected transport error")
	}
	if calls != 1 {
		t.Fatalf("expected the injected client to be used, got %d calls", calls)
	}
}

func TestHTTPPublisherRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := HTTPPublisher{BaseURL: srv.URL, Client: srv.Client()}
	_, err := p.PublishDay(context.Background(), DaySummary{})
	var rateErr RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rateErr.RetryAfter != 30*time.Second {
		t.Fatalf("expected retry-after 30s, got %s", rateErr.RetryAfter)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
