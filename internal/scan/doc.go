// Package scan accepts scan requests and turns them into queued jobs.
//
// A target has at most one pending or running job. Submitting a target
// that is already being scanned returns the existing job id instead of
// creating a second job.
package scan
