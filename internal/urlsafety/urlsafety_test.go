package urlsafety

import (
	"errors"
	"testing"

	"reelforge/internal/errs"
)

func TestValidateRejectsBadScheme(t *testing.T) {
	c := New(nil)

	_, err := c.Validate("ftp://example.com/video")
	if !errors.Is(err, errs.ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
}

func TestValidateRejectsMissingHost(t *testing.T) {
	c := New(nil)

	_, err := c.Validate("https:///path")
	if !errors.Is(err, errs.ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
}

func TestValidateEnforcesAllowlist(t *testing.T) {
	c := New([]string{"good.example"})

	if _, err := c.Validate("https://bad.example/watch?v=abc"); !errors.Is(err, errs.ErrInvalidURL) {
		t.Fatalf("expected disallowed host to be rejected, got %v", err)
	}

	if _, err := c.Validate("https://good.example/watch?v=abc"); err != nil {
		t.Fatalf("expected allowed host to pass, got %v", err)
	}
}

func TestValidateFiltersQueryParams(t *testing.T) {
	c := New(nil)

	got, err := c.Validate("https://example.com/watch?v=abc&list=xyz&t=30&utm_source=evil")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	want := "https://example.com/watch?list=xyz&t=30&v=abc"
	if got != want {
		t.Fatalf("Validate = %q, want %q", got, want)
	}
}

func TestValidateNoAllowlistAcceptsAnyHost(t *testing.T) {
	c := New(nil)

	if _, err := c.Validate("http://anything.example/path"); err != nil {
		t.Fatalf("expected no allowlist to accept any host, got %v", err)
	}
}
