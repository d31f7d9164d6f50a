package httpclient

import (
	"net/http"
	"testing"
	"time"
)

func TestParseOpenAIHeaders(t *testing.T) {
	headers := http.Header{}
	headers.Set("Retry-After", "30")
	headers.Set("x-ratelimit-remaining-requests", "42")
	headers.Set("x-ratelimit-remaining-tokens", "9000")

	info := ParseOpenAIHeaders(headers)

	if info.RetryAfter != 30*time.Second {
		t.Errorf("RetryAfter = %v, want 30s", info.RetryAfter)
	}
	if info.RequestsRemaining != 42 {
		t.Errorf("RequestsRemaining = %d, want 42", info.RequestsRemaining)
	}
	if info.TokensRemaining != 9000 {
		t.Errorf("TokensRemaining = %d, want 9000", info.TokensRemaining)
	}
}

func TestParseOpenAIHeaders_Empty(t *testing.T) {
	info := ParseOpenAIHeaders(http.Header{})
	if info.RetryAfter != 0 || info.ResetTime != 0 {
		t.Errorf("expected zero info, got %+v", info)
	}
}

func TestParseAnthropicHeaders(t *testing.T) {
	reset := time.Now().Add(time.Minute).UTC().Format(time.RFC3339)

	headers := http.Header{}
	headers.Set("retry-after", "15")
	headers.Set("anthropic-ratelimit-requests-reset", reset)
	headers.Set("anthropic-ratelimit-requests-remaining", "7")

	info := ParseAnthropicHeaders(headers)

	if info.RetryAfter != 15*time.Second {
		t.Errorf("RetryAfter = %v, want 15s", info.RetryAfter)
	}
	if info.ResetTime == 0 {
		t.Error("ResetTime should be parsed from RFC3339 header")
	}
	if info.RequestsRemaining != 7 {
		t.Errorf("RequestsRemaining = %d, want 7", info.RequestsRemaining)
	}
}
