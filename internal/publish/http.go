package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type RateLimitError struct {
	RetryAfter time.Duration
}

func (r RateLimitError) Error() string {
	if r.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", r.RetryAfter)
	}
	return "rate limited"
}

type HTTPPublisher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

var defaultClient = &http.Client{Timeout: 15 * time.Second}

func (p HTTPPublisher) PublishDay(ctx context.Context, summary DaySummary) (int64, error) {
	client := p.Client
	if client == nil {
		client = defaultClient
	}

	b, _ := json.Marshal(summary)
	start := time.Now()

	url := strings.TrimRight(p.BaseURL, "/") + "/v1/days"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(p.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return time.Since(start).Milliseconds(), err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		if d := retryAfter(resp.Header.Get("Retry-After")); d > 0 {
			return time.Since(start).Milliseconds(), RateLimitError{RetryAfter: d}
		}
		return time.Since(start).Milliseconds(), RateLimitError{}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return time.Since(start).Milliseconds(), errors.New("dashboard service error")
	}
	return time.Since(start).Milliseconds(), nil
}

func retryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if d, err := time.ParseDuration(header + "s"); err == nil {
		return d
	}
	return 0
}
