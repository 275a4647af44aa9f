package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// transport is the JSON-over-HTTP plumbing shared by all runtimes:
// one POST, optional retries on 429/5xx/transient network errors, typed errors.
type transport struct {
	httpClient       *http.Client
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	// host labels network failures.
	host string
	// errorBody extracts message/code from a provider's error payload.
	errorBody func(raw map[string]any) (msg, code string)
}

func newTransport(httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) transport {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 1
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 4 * time.Second
	}
	return transport{
		httpClient:       &http.Client{Timeout: httpTimeout},
		retryMaxAttempts: retryMax,
		retryBaseDelay:   baseDelay,
		retryMaxDelay:    maxDelay,
		errorBody:        nestedErrorBody,
	}
}

// postJSON sends payload to endpoint and decodes a 2xx body into out.
// It returns the response request id when the provider sends one.
func (t transport) postJSON(ctx context.Context, endpoint string, headers map[string]string, payload, out any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	backoff := t.retryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= t.retryMaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := t.httpClient.Do(req)
		if err != nil {
			lastErr = &UnreachableError{Host: t.host, Err: err}
			if isRetryableNetErr(err) && attempt < t.retryMaxAttempts {
				t.sleep(ctx, withJitter(backoff))
				backoff *= 2
				continue
			}
			return "", lastErr
		}
		reqID := extractRequestID(resp)
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return reqID, fmt.Errorf("decode response: %w", err)
			}
			return reqID, nil
		}

		apiErr := t.readAPIError(resp)
		resp.Body.Close()
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		if !retryable || attempt == t.retryMaxAttempts {
			return reqID, classifyAPIError(apiErr, resp.Header)
		}
		lastErr = apiErr
		if secs, err := parseRetryAfterSeconds(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			t.sleep(ctx, time.Duration(secs)*time.Second)
			continue
		}
		sleep := withJitter(backoff)
		if sleep > t.retryMaxDelay {
			sleep = t.retryMaxDelay
		}
		t.sleep(ctx, sleep)
		backoff *= 2
	}
	return "", lastErr
}

func (t transport) readAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)
	apiErr := &APIError{StatusCode: resp.StatusCode, Raw: raw, RequestID: extractRequestID(resp)}
	if t.errorBody != nil {
		apiErr.Message, apiErr.Code = t.errorBody(raw)
	}
	return apiErr
}

func (t transport) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// nestedErrorBody reads {"error":{"message","code"}} with a flat {"message","code"} fallback.
func nestedErrorBody(raw map[string]any) (string, string) {
	src := raw
	if v, ok := raw["error"].(map[string]any); ok {
		src = v
	}
	msg, _ := src["message"].(string)
	code, _ := src["code"].(string)
	if code == "" {
		code, _ = src["status"].(string)
	}
	if n, ok := src["code"].(float64); ok && code == "" {
		code = strconv.Itoa(int(n))
	}
	return msg, code
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF)
}

// parseRetryAfterSeconds interprets a Retry-After header as seconds or an HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if v == "" {
		return 0, errors.New("empty Retry-After")
	}
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

// extractRequestID pulls a best-effort request ID from common headers.
func extractRequestID(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	for _, k := range []string{"X-Request-Id", "Openrouter-Request-ID", "X-Goog-Request-Id", "X-Cloud-Trace-Context"} {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// withJitter applies +/- 20% jitter.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	f := 0.8 + rand.Float64()*0.4
	if out := time.Duration(float64(d) * f); out > 0 {
		return out
	}
	return d
}

func containsAnyFold(s string, subs ...string) bool {
	ls := strings.ToLower(s)
	for _, sub := range subs {
		if sub != "" && strings.Contains(ls, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
