// Package main provides the entry point for the hybridscan CLI.
//
// hybridscan audits websites for performance, reachability and security.
// It runs Lighthouse against a shared headless Chrome, pings and traces
// the host, and drives an OWASP ZAP spider and active scan.
//
// Usage:
//
//	hybridscan serve
//	hybridscan scan https://example.com
//	hybridscan report https://example.com
//
// See --help for all available options.
package main

func main() {
	Execute()
}
