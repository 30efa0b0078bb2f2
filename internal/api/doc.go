// Package api serves the HTTP interface of hybridscan.
//
// Clients submit targets with POST /report and poll the per-kind result
// endpoints. Targets in paths are URL-escaped, for example
// GET /report/https%3A%2F%2Fexample.com%2F.
package api
