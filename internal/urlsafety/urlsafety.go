// Package urlsafety is the boundary stub for request URL validation:
// scheme/host allowlisting and query-parameter filtering. Spec.md
// places the "real" policy out of scope as an external collaborator;
// this package is the simplest correct implementation of that boundary
// so the service compiles and is testable end to end (§4.9, §6).
package urlsafety

import (
	"net/url"
	"slices"
	"strings"

	"reelforge/internal/errs"
)

const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"
)

// allowedQueryParams is the whitelist of query parameters preserved by
// Validate; every other parameter is dropped.
var allowedQueryParams = []string{"v", "list", "t"}

// Checker validates and normalizes request URLs against a host
// allowlist.
type Checker struct {
	allowedHosts []string
}

// New returns a Checker that accepts only the given hosts. An empty
// allowlist accepts any host, provided the scheme is http(s).
func New(allowedHosts []string) *Checker {
	return &Checker{allowedHosts: allowedHosts}
}

// Validate parses raw and rejects it unless it has an http(s) scheme, a
// non-empty host, and (when an allowlist is configured) a host on it.
// On success it returns the URL with its query filtered to the
// allowed-parameter whitelist.
func (c *Checker) Validate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil {
		return "", errs.ErrInvalidURL
	}

	if u.Scheme != schemeHTTP && u.Scheme != schemeHTTPS {
		return "", errs.ErrInvalidURL
	}

	if u.Host == "" {
		return "", errs.ErrInvalidURL
	}

	if len(c.allowedHosts) > 0 && !slices.Contains(c.allowedHosts, u.Hostname()) {
		return "", errs.ErrInvalidURL
	}

	u.RawQuery = filterQuery(u.Query())

	return u.String(), nil
}

func filterQuery(values url.Values) string {
	filtered := url.Values{}

	for _, key := range allowedQueryParams {
		if v := values.Get(key); v != "" {
			filtered.Set(key, v)
		}
	}

	return filtered.Encode()
}
