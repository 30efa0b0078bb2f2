package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prototypedave/hybridTool/internal/log"
	"github.com/prototypedave/hybridTool/internal/model"
)

func TestIsPrivate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ip   string
		want bool
	}{
		{ip: "10.1.2.3", want: true},
		{ip: "172.16.0.1", want: true},
		{ip: "172.31.255.255", want: true},
		{ip: "172.32.0.1", want: false},
		{ip: "192.168.1.1", want: true},
		{ip: "127.0.0.1", want: true},
		{ip: "169.254.1.1", want: true},
		{ip: "100.64.0.1", want: true},
		{ip: "::1", want: true},
		{ip: "fd00::1", want: true},
		{ip: "not-an-ip", want: true},
		{ip: "93.184.216.34", want: false},
		{ip: "2606:2800:220:1::", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			t.Parallel()

			if got := IsPrivate(tt.ip); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseLoc(t *testing.T) {
	t.Parallel()

	c, err := ParseLoc("37.4056,-122.0775")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *c.Latitude != 37.4056 || *c.Longitude != -122.0775 {
		t.Errorf("unexpected coordinates: %v, %v", *c.Latitude, *c.Longitude)
	}

	for _, bad := range []string{"", "37.4", "x,1", "1,y"} {
		if _, err := ParseLoc(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestIPInfoClientLocate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.URL.Path {
		case "/8.8.8.8/json":
			_, _ = w.Write([]byte(`{"ip":"8.8.8.8","loc":"37.4056,-122.0775"}`))
		case "/198.51.100.1/json":
			_, _ = w.Write([]byte(`{"ip":"198.51.100.1","bogon":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	c, err := NewIPInfoClient(srv.URL, "tok",
		WithRate(1000),
		WithLogger(log.Discard()),
		WithRetry(0, time.Millisecond, time.Millisecond),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("located", func(t *testing.T) {
		t.Parallel()

		coords, err := c.Locate(context.Background(), "8.8.8.8")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if coords.Latitude == nil || *coords.Latitude != 37.4056 {
			t.Errorf("unexpected coordinates: %+v", coords)
		}
	})

	t.Run("bogon", func(t *testing.T) {
		t.Parallel()

		if _, err := c.Locate(context.Background(), "198.51.100.1"); !errors.Is(err, ErrNoLocation) {
			t.Errorf("expected ErrNoLocation, got %v", err)
		}
	})

	t.Run("api error", func(t *testing.T) {
		t.Parallel()

		if _, err := c.Locate(context.Background(), "1.1.1.1"); !errors.Is(err, ErrLookup) {
			t.Errorf("expected ErrLookup, got %v", err)
		}
	})
}

func TestNewIPInfoClientInvalidURL(t *testing.T) {
	t.Parallel()

	if _, err := NewIPInfoClient("ipinfo.io", ""); err == nil {
		t.Error("expected error for url without scheme")
	}
}

type fakeLocator struct {
	mu        sync.Mutex
	callCount int
	seen      []string
}

func (f *fakeLocator) Locate(_ context.Context, ip string) (model.Coordinates, error) {
	f.mu.Lock()
	f.callCount++
	f.seen = append(f.seen, ip)
	f.mu.Unlock()

	if strings.HasPrefix(ip, "203.") {
		return model.Coordinates{}, ErrNoLocation
	}
	return ParseLoc("1.5,2.5")
}

func TestLocateHops(t *testing.T) {
	t.Parallel()

	hops := []model.Hop{
		{HopNumber: 1, IPAddress: "192.168.1.1", Latency: 0.5},
		{HopNumber: 2, IPAddress: "203.0.113.9", Latency: 10},
		{HopNumber: 3, IPAddress: "93.184.216.34", Latency: 20},
	}
	loc := &fakeLocator{}

	out := LocateHops(context.Background(), loc, hops, 2, log.Discard())

	if len(out) != 3 {
		t.Fatalf("expected 3 hops, got %d", len(out))
	}
	if loc.callCount != 2 {
		t.Errorf("expected private hop to be skipped, got %d lookups", loc.callCount)
	}
	if out[0].Latitude != nil || out[1].Latitude != nil {
		t.Error("expected null coordinates for private and failed hops")
	}
	if out[2].Latitude == nil || *out[2].Latitude != 1.5 || out[2].HopNumber != 3 {
		t.Errorf("unexpected located hop: %+v", out[2])
	}
}
