// Package security runs an OWASP ZAP spider and active scan against a
// target and keeps a de-duplicated alert set per target across runs.
package security
