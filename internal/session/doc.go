// Package session manages the single long-lived browser session shared by
// every performance audit.
//
// The Manager owns at most one live Handle at a time. Acquire returns the
// live handle when its liveness probe passes and launches a replacement when
// it does not, so a crashed browser is recreated lazily on the next job
// instead of failing every later job. Launch failures are returned to the
// caller wrapped in model.ErrSessionUnavailable; the manager never retries
// on its own.
//
// ChromeDriver is the production Driver. It starts headless Chrome through
// chromedp on a fixed remote debugging port so that the Lighthouse CLI can
// attach to the same browser.
package session
