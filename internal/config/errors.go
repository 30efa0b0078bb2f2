package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidJobTimeout is returned when the job timeout is not positive.
	ErrInvalidJobTimeout = errors.New("invalid job timeout: must be positive")

	// ErrInvalidRescanInterval is returned when the rescan interval is negative.
	// Use 0 to disable the scheduler.
	ErrInvalidRescanInterval = errors.New("invalid rescan interval: must be non-negative")

	// ErrInvalidRetryAttempts is returned when fewer than one attempt is configured.
	ErrInvalidRetryAttempts = errors.New("invalid retry attempts: must be at least 1")

	// ErrInvalidRetryDelay is returned when the retry delay is negative, or zero
	// with the exponential strategy.
	ErrInvalidRetryDelay = errors.New("invalid retry delay: must be non-negative, and positive for exponential backoff")

	// ErrInvalidRetryStrategy is returned for an unknown retry strategy.
	ErrInvalidRetryStrategy = errors.New("invalid retry strategy: must be constant or exponential")

	// ErrInvalidDebugPort is returned when the debugging port is out of range.
	ErrInvalidDebugPort = errors.New("invalid debug port: must be between 1 and 65535")

	// ErrInvalidAuditTimeout is returned when the Lighthouse timeout is not positive.
	ErrInvalidAuditTimeout = errors.New("invalid audit timeout: must be positive")

	// ErrInvalidPingCount is returned when the ping count is not positive.
	ErrInvalidPingCount = errors.New("invalid ping count: must be positive")

	// ErrInvalidPingTimeout is returned when the ping timeout is not positive.
	ErrInvalidPingTimeout = errors.New("invalid ping timeout: must be positive")

	// ErrInvalidTracerouteTimeout is returned when the traceroute timeout is not positive.
	ErrInvalidTracerouteTimeout = errors.New("invalid traceroute timeout: must be positive")

	// ErrInvalidZAPAddress is returned when the ZAP address is not an http(s) URL.
	ErrInvalidZAPAddress = errors.New("invalid ZAP address: must be an http or https URL")

	// ErrInvalidPollInterval is returned when the ZAP poll interval is not positive.
	ErrInvalidPollInterval = errors.New("invalid ZAP poll interval: must be positive")

	// ErrInvalidZAPRetryMax is returned when the ZAP retry count is negative.
	ErrInvalidZAPRetryMax = errors.New("invalid ZAP retry count: must be non-negative")

	// ErrInvalidIPInfoURL is returned when the ipinfo URL is not an http(s) URL.
	ErrInvalidIPInfoURL = errors.New("invalid ipinfo URL: must be an http or https URL")

	// ErrInvalidGeoRate is returned when the geolocation rate is not positive.
	ErrInvalidGeoRate = errors.New("invalid geolocation rate: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrNoTarget is returned by commands that need at least one target.
	ErrNoTarget = errors.New("no target specified: provide at least one URL")
)
