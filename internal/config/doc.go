// Package config provides configuration structures and utilities for hybridscan.
// It defines defaults for the job queue, the shared browser session, the
// three probes and the HTTP API, loads overrides from a YAML file, and
// validates the result before any component starts.
package config
