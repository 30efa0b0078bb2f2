// Package geo resolves traceroute hop addresses to coordinates with the
// ipinfo.io API. Private and reserved addresses are never sent out.
package geo
