package api

import (
	"net/http/httptest"
	"testing"
)

func TestTokenAuthorizer(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		header string
		want   bool
	}{
		{"matching token", "abc", "Bearer abc", true},
		{"surrounding spaces", " abc ", "Bearer  abc", true},
		{"wrong token", "abc", "Bearer abd", false},
		{"missing scheme", "abc", "abc", false},
		{"basic auth", "abc", "Basic abc", false},
		{"no header", "abc", "", false},
		{"unconfigured", "", "Bearer ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := NewTokenAuthorizer(tt.token)
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if got := auth.Authorize(req); got != tt.want {
				t.Errorf("Authorize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClientRateLimiter_PerClientBuckets(t *testing.T) {
	limiter, err := NewClientRateLimiter(0.001, 1, 2)
	if err != nil {
		t.Fatal(err)
	}

	if !limiter.Allow("a") || limiter.Allow("a") {
		t.Error("client a should get exactly one request")
	}
	if !limiter.Allow("b") {
		t.Error("client b has its own bucket")
	}

	// A third client evicts the least recently used one, which then starts over.
	limiter.Allow("c")
	if !limiter.Allow("a") {
		t.Error("evicted client should get a fresh bucket")
	}

	if _, err := NewClientRateLimiter(1, 1, 0); err == nil {
		t.Error("expected an error for a zero-size client cache")
	}
}
