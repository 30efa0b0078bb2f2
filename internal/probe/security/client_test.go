package security

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prototypedave/hybridTool/internal/log"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...ClientOption) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]ClientOption{
		WithClientLogger(log.Discard()),
		WithRetryWait(time.Millisecond, 2*time.Millisecond),
	}, opts...)
	c, err := NewClient(srv.URL, "secret-key", opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestNewClientInvalidAddress(t *testing.T) {
	t.Parallel()

	for _, addr := range []string{"", "localhost:8081", "://bad"} {
		if _, err := NewClient(addr, ""); err == nil {
			t.Errorf("expected error for %q", addr)
		}
	}
}

func TestClientSpider(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/JSON/spider/action/scan/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(APIKeyHeader) != "secret-key" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"bad_api_key","message":"Missing API key"}`))
			return
		}
		if r.URL.Query().Get("url") != "https://example.com/" || r.URL.Query().Get("recurse") != "true" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"scan":"7"}`))
	})
	mux.HandleFunc("/JSON/spider/view/status/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("scanId") != "7" {
			t.Errorf("unexpected scan id: %s", r.URL.Query().Get("scanId"))
		}
		_, _ = w.Write([]byte(`{"status":"42"}`))
	})

	c := newTestClient(t, mux)

	id, err := c.StartSpider(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "7" {
		t.Errorf("expected scan id 7, got %s", id)
	}

	status, err := c.SpiderStatus(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != 42 {
		t.Errorf("expected 42, got %d", status)
	}
}

func TestClientAlerts(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/JSON/core/view/alerts/" || r.URL.Query().Get("baseurl") != "https://example.com/" {
			t.Errorf("unexpected request: %s", r.URL)
		}
		_, _ = w.Write([]byte(`{"alerts":[{
			"alertRef":"10038-1",
			"alert":"Content Security Policy (CSP) Header Not Set",
			"risk":"Medium",
			"confidence":"High",
			"cweid":"693",
			"wascid":"15",
			"tags":{"OWASP_2021_A05":"https://owasp.org/Top10/A05_2021-Security_Misconfiguration/"}
		}]}`))
	}))

	alerts, err := c.Alerts(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 1 || alerts[0].AlertRef != "10038-1" || alerts[0].CWEID != "693" {
		t.Errorf("unexpected alerts: %+v", alerts)
	}
}

func TestClientErrors(t *testing.T) {
	t.Parallel()

	t.Run("api error is not retried", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"url_not_found","message":"URL Not Found in the Scan Tree"}`))
		}))

		_, err := c.StartActiveScan(context.Background(), "https://example.com/")
		if !errors.Is(err, ErrZAP) {
			t.Errorf("expected ErrZAP, got %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 call, got %d", calls.Load())
		}
	})

	t.Run("transient error is retried", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"status":"100"}`))
		}), WithRetryMax(3))

		status, err := c.ActiveScanStatus(context.Background(), "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status != 100 || calls.Load() != 3 {
			t.Errorf("expected status 100 after 3 calls, got %d after %d", status, calls.Load())
		}
	})

	t.Run("retries exhausted", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}), WithRetryMax(1))

		if _, err := c.SpiderStatus(context.Background(), "1"); !errors.Is(err, ErrZAP) {
			t.Errorf("expected ErrZAP, got %v", err)
		}
	})

	t.Run("non numeric status", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"status":"does_not_exist"}`))
		}))

		if _, err := c.SpiderStatus(context.Background(), "1"); !errors.Is(err, ErrZAP) {
			t.Errorf("expected ErrZAP, got %v", err)
		}
	})
}
