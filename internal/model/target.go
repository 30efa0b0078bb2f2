package model

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"
)

// Target is an immutable value object representing a scannable URL.
// The scheme and host are lower-cased, the host is converted to its ASCII
// (punycode) form, and the fragment is dropped, so two spellings of the
// same site map to the same job.
type Target struct {
	url  string // Normalized absolute URL
	host string // Hostname without port
}

// NewTarget validates and normalizes a raw URL.
// Returns an error wrapping ErrInvalidTarget if the URL is not an absolute
// http or https URL with a host.
func NewTarget(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, fmt.Errorf("%w: empty url", ErrInvalidTarget)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != schemeHTTP && scheme != schemeHTTPS {
		return Target{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidTarget, u.Scheme)
	}

	hostname := u.Hostname()
	if hostname == "" {
		return Target{}, fmt.Errorf("%w: missing host", ErrInvalidTarget)
	}

	host, err := normalizeHost(hostname)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	u.Scheme = scheme
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		u.Host = "[" + host + "]"
	} else {
		u.Host = host
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil
	if u.Path == "" {
		u.Path = "/"
	}

	return Target{url: u.String(), host: host}, nil
}

// MustNewTarget creates a new Target or panics if invalid.
// Use only for known-valid URLs in tests or initialization.
func MustNewTarget(raw string) Target {
	t, err := NewTarget(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// normalizeHost lower-cases IP literals and converts domain names to ASCII.
func normalizeHost(hostname string) (string, error) {
	if ip := net.ParseIP(hostname); ip != nil {
		return ip.String(), nil
	}
	return idna.Lookup.ToASCII(strings.ToLower(hostname))
}

// String returns the normalized URL.
func (t Target) String() string {
	return t.url
}

// Host returns the hostname used by network probes.
func (t Target) Host() string {
	return t.host
}

// IsZero returns true if the target was never initialized.
func (t Target) IsZero() bool {
	return t.url == ""
}
