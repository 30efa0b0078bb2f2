package geo

import (
	"context"
	"log/slog"
	"net/netip"

	"golang.org/x/sync/errgroup"

	"github.com/prototypedave/hybridTool/internal/model"
)

// DefaultConcurrency bounds parallel lookups in LocateHops.
const DefaultConcurrency = 4

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598).
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// IsPrivate reports whether ip cannot be geolocated: private, loopback,
// link-local, CGNAT, unspecified, or not an IP address at all.
func IsPrivate(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return true
	}
	addr = addr.Unmap()
	return addr.IsPrivate() ||
		addr.IsLoopback() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsMulticast() ||
		addr.IsUnspecified() ||
		sharedAddressSpace.Contains(addr)
}

// LocateHops returns hops with coordinates, in hop order. Private
// addresses and failed lookups get null coordinates; a lookup failure
// never fails the whole call.
func LocateHops(ctx context.Context, loc Locator, hops []model.Hop, concurrency int, logger *slog.Logger) []model.GeoHop {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}

	out := make([]model.GeoHop, len(hops))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, hop := range hops {
		out[i].Hop = hop
		if IsPrivate(hop.IPAddress) {
			continue
		}
		g.Go(func() error {
			coords, err := loc.Locate(gctx, hop.IPAddress)
			if err != nil {
				logger.Debug("hop lookup failed", "ip", hop.IPAddress, "error", err)
				return nil
			}
			out[i].Coordinates = coords
			return nil
		})
	}
	_ = g.Wait()
	return out
}
