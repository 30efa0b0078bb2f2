package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "hybridscan"

	// DefaultListenAddress is where the HTTP API listens.
	// The PORT environment variable overrides the port when no address is configured.
	DefaultListenAddress = ":8080"

	// DefaultJobTimeout bounds a whole job. A ZAP active scan against a large
	// site dominates the runtime, so this is generous.
	DefaultJobTimeout = 15 * time.Minute

	// DefaultRescanInterval is how often known targets are resubmitted.
	DefaultRescanInterval = 24 * time.Hour

	// DefaultRetryAttempts is the number of attempts per performance sub-audit.
	DefaultRetryAttempts = 3

	// DefaultRetryDelay is the wait between attempts. Zero retries immediately.
	DefaultRetryDelay = time.Duration(0)

	// DefaultRetryStrategy keeps the delay constant between attempts.
	DefaultRetryStrategy = RetryConstant

	// DefaultDebugPort is the Chrome remote debugging port Lighthouse attaches to.
	DefaultDebugPort = 9222

	// DefaultLighthouseCommand is the Lighthouse CLI invocation.
	DefaultLighthouseCommand = "lighthouse"

	// DefaultAuditTimeout bounds one Lighthouse run.
	DefaultAuditTimeout = 3 * time.Minute

	// DefaultPingCount is the number of echo attempts per ping measurement.
	DefaultPingCount = 6

	// DefaultPingTimeout bounds each echo attempt.
	DefaultPingTimeout = 1 * time.Second

	// DefaultTracerouteTimeout bounds one traceroute run.
	DefaultTracerouteTimeout = 2 * time.Minute

	// DefaultZAPAddress is the base URL of the ZAP API.
	DefaultZAPAddress = "http://localhost:8081"

	// DefaultZAPPollInterval is how often spider and active scan progress is polled.
	DefaultZAPPollInterval = 5 * time.Second

	// DefaultZAPRetryMax is how many times a failed ZAP API request is retried.
	DefaultZAPRetryMax = 3

	// DefaultIPInfoURL is the base URL of the ipinfo API.
	DefaultIPInfoURL = "https://ipinfo.io"

	// DefaultGeoRate is the number of ipinfo lookups allowed per second.
	DefaultGeoRate = 2.0
)

// RetryStrategy selects how the delay grows between attempts.
type RetryStrategy string

const (
	// RetryConstant waits RetryDelay between every attempt.
	RetryConstant RetryStrategy = "constant"
	// RetryExponential doubles the delay after every attempt, starting at RetryDelay.
	RetryExponential RetryStrategy = "exponential"
)

// Config holds all configuration options for hybridscan.
// It is populated from defaults, then the YAML file, then CLI flags, and
// passed to components explicitly rather than read from global state.
type Config struct {
	// ListenAddress is the HTTP API address in "host:port" form.
	ListenAddress string

	// DBDir is the directory holding the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/hybridscan on Linux).
	DBDir string

	// JobTimeout is the deadline applied to each job by the queue worker.
	JobTimeout time.Duration

	// RescanInterval is the period of the rescan scheduler. Zero disables it.
	RescanInterval time.Duration

	// Targets are URLs the scheduler always rescans, in addition to
	// targets already known to the job store.
	Targets []string

	// Verbose enables debug logging.
	Verbose bool

	// JSONLogs switches the log output to JSON.
	JSONLogs bool

	// ConfigFilePath is the path of the YAML configuration file.
	ConfigFilePath string

	// RetryAttempts is the total number of attempts per performance sub-audit.
	RetryAttempts int

	// RetryDelay is the delay before the second attempt.
	RetryDelay time.Duration

	// RetryStrategy is constant or exponential.
	RetryStrategy RetryStrategy

	// ChromePath overrides the Chrome executable. Empty searches PATH.
	ChromePath string

	// DebugPort is the remote debugging port of the shared Chrome session.
	DebugPort int

	// Headful runs Chrome with a visible window, for debugging audits.
	Headful bool

	// LighthouseCommand is the Lighthouse CLI command line; extra
	// arguments are allowed and quoted like a shell would.
	LighthouseCommand string

	// AuditTimeout bounds one Lighthouse run.
	AuditTimeout time.Duration

	// PingCount is the number of echo attempts per ping measurement.
	PingCount int

	// PingTimeout bounds each echo attempt.
	PingTimeout time.Duration

	// PingCommand overrides the ping command line. Empty uses the OS default.
	PingCommand string

	// TracerouteCommand overrides the traceroute command line.
	// Empty uses traceroute, or tracert on Windows.
	TracerouteCommand string

	// TracerouteTimeout bounds one traceroute run.
	TracerouteTimeout time.Duration

	// ZAPAddress is the base URL of the ZAP API.
	ZAPAddress string

	// ZAPAPIKey authenticates against the ZAP API.
	ZAPAPIKey string

	// ZAPPollInterval is the spider and active scan polling period.
	ZAPPollInterval time.Duration

	// ZAPRetryMax is the number of retries for a failed ZAP API request.
	ZAPRetryMax int

	// IPInfoURL is the base URL of the ipinfo API.
	IPInfoURL string

	// IPInfoToken authenticates against ipinfo. Empty uses the anonymous tier.
	IPInfoToken string

	// GeoRate is the number of ipinfo lookups allowed per second.
	GeoRate float64

	// JSONReport selects JSON output for the scan and report commands.
	JSONReport bool

	// MarkdownReport selects Markdown output for the scan and report commands.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		ListenAddress:     DefaultListenAddress,
		DBDir:             XDGDataDir(),
		JobTimeout:        DefaultJobTimeout,
		RescanInterval:    DefaultRescanInterval,
		RetryAttempts:     DefaultRetryAttempts,
		RetryDelay:        DefaultRetryDelay,
		RetryStrategy:     DefaultRetryStrategy,
		DebugPort:         DefaultDebugPort,
		LighthouseCommand: DefaultLighthouseCommand,
		AuditTimeout:      DefaultAuditTimeout,
		PingCount:         DefaultPingCount,
		PingTimeout:       DefaultPingTimeout,
		TracerouteTimeout: DefaultTracerouteTimeout,
		ZAPAddress:        DefaultZAPAddress,
		ZAPPollInterval:   DefaultZAPPollInterval,
		ZAPRetryMax:       DefaultZAPRetryMax,
		IPInfoURL:         DefaultIPInfoURL,
		GeoRate:           DefaultGeoRate,
	}
}

// XDGDataDir returns the XDG data directory for hybridscan.
// On Linux: ~/.local/share/hybridscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for hybridscan.
// On Linux: ~/.config/hybridscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if c.JobTimeout <= 0 {
		return ErrInvalidJobTimeout
	}
	if c.RescanInterval < 0 {
		return ErrInvalidRescanInterval
	}
	if c.RetryAttempts <= 0 {
		return ErrInvalidRetryAttempts
	}
	if c.RetryDelay < 0 {
		return ErrInvalidRetryDelay
	}
	switch c.RetryStrategy {
	case RetryConstant:
	case RetryExponential:
		if c.RetryDelay <= 0 {
			return ErrInvalidRetryDelay
		}
	default:
		return ErrInvalidRetryStrategy
	}
	if c.DebugPort <= 0 || c.DebugPort > 65535 {
		return ErrInvalidDebugPort
	}
	if c.AuditTimeout <= 0 {
		return ErrInvalidAuditTimeout
	}
	if c.PingCount <= 0 {
		return ErrInvalidPingCount
	}
	if c.PingTimeout <= 0 {
		return ErrInvalidPingTimeout
	}
	if c.TracerouteTimeout <= 0 {
		return ErrInvalidTracerouteTimeout
	}
	if !isHTTPURL(c.ZAPAddress) {
		return ErrInvalidZAPAddress
	}
	if c.ZAPPollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.ZAPRetryMax < 0 {
		return ErrInvalidZAPRetryMax
	}
	if !isHTTPURL(c.IPInfoURL) {
		return ErrInvalidIPInfoURL
	}
	if c.GeoRate <= 0 {
		return ErrInvalidGeoRate
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
