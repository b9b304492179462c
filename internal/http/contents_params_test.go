package httpserver

import (
	"net/url"
	"testing"

	"github.com/Clark-Hu/content-rating/internal/config"
)

func TestBuildListParams(t *testing.T) {
	values, _ := url.ParseQuery("q= brigade &limit=25&user_id=user42")

	params, err := buildListParams(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.filters.Query == nil || *params.filters.Query != "brigade" {
		t.Fatalf("query not trimmed: %+v", params.filters.Query)
	}
	if params.filters.Limit != 25 {
		t.Fatalf("limit not parsed: %d", params.filters.Limit)
	}
	if params.userID != "user42" {
		t.Fatalf("user id not parsed: %q", params.userID)
	}
}

func TestBuildListParams_InvalidValues(t *testing.T) {
	values, _ := url.ParseQuery("limit=abc")
	if _, err := buildListParams(values); err == nil {
		t.Fatalf("expected error for invalid limit")
	}

	// Valid base64 that does not decode into a cursor payload.
	values, _ = url.ParseQuery("cursor=aGVsbG8=")
	if _, err := buildListParams(values); err == nil {
		t.Fatalf("expected error for invalid cursor")
	}
}

func TestVerifyBearer(t *testing.T) {
	srv := &Server{cfg: config.Config{AuthToken: "secret"}}
	cases := []struct {
		header  string
		allowed bool
	}{
		{"Bearer secret", true},
		{"Bearer  secret ", true},
		{"Bearer wrong", false},
		{"Basic secret", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := srv.verifyBearer(tc.header); got != tc.allowed {
			t.Fatalf("verifyBearer(%q) = %v, want %v", tc.header, got, tc.allowed)
		}
	}
}
