// Package performance scores page performance with Lighthouse.
//
// A run performs one sub-audit per form factor (mobile, then desktop)
// against the shared browser session. Each sub-audit is retried under a
// probe.RetryPolicy, scored with the Lighthouse v10 curves in scoring.go,
// and its "opportunity" audits are normalized into diagnostics.
package performance
