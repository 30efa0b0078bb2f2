package model

import (
	"errors"
	"testing"
)

func TestNewTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		wantURL  string
		wantHost string
		wantErr  error
	}{
		{
			name:     "plain https url gains a root path",
			raw:      "https://example.com",
			wantURL:  "https://example.com/",
			wantHost: "example.com",
		},
		{
			name:     "scheme and host are lower-cased",
			raw:      "HTTPS://Example.COM/Path?q=1",
			wantURL:  "https://example.com/Path?q=1",
			wantHost: "example.com",
		},
		{
			name:     "fragment is dropped and port kept",
			raw:      "http://example.com:8080/a#section",
			wantURL:  "http://example.com:8080/a",
			wantHost: "example.com",
		},
		{
			name:     "internationalized host is converted to punycode",
			raw:      "https://bücher.example/",
			wantURL:  "https://xn--bcher-kva.example/",
			wantHost: "xn--bcher-kva.example",
		},
		{
			name:     "ipv4 literal",
			raw:      "http://127.0.0.1/",
			wantURL:  "http://127.0.0.1/",
			wantHost: "127.0.0.1",
		},
		{
			name:     "surrounding whitespace is trimmed",
			raw:      "  https://example.com/  ",
			wantURL:  "https://example.com/",
			wantHost: "example.com",
		},
		{name: "empty", raw: "", wantErr: ErrInvalidTarget},
		{name: "relative path", raw: "/just/a/path", wantErr: ErrInvalidTarget},
		{name: "unsupported scheme", raw: "ftp://example.com/", wantErr: ErrInvalidTarget},
		{name: "missing host", raw: "https:///path", wantErr: ErrInvalidTarget},
		{name: "not a url", raw: "http://[::1", wantErr: ErrInvalidTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NewTarget(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				if !got.IsZero() {
					t.Errorf("expected zero target on error, got %q", got.String())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.wantURL {
				t.Errorf("expected url %q, got %q", tt.wantURL, got.String())
			}
			if got.Host() != tt.wantHost {
				t.Errorf("expected host %q, got %q", tt.wantHost, got.Host())
			}
		})
	}
}

func TestNewTargetSameSiteSameKey(t *testing.T) {
	t.Parallel()

	a := MustNewTarget("https://EXAMPLE.com")
	b := MustNewTarget("https://example.com/#top")
	if a.String() != b.String() {
		t.Errorf("expected equal targets, got %q and %q", a.String(), b.String())
	}
}

func TestMustNewTargetPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid target")
		}
	}()
	MustNewTarget("not a url")
}
