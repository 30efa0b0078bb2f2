package config

import "time"

// File represents the structure of the .hybridscan.yaml configuration file.
// Zero values leave the corresponding Config field untouched.
type File struct {
	Server      ServerSection      `yaml:"server,omitempty"`
	Database    DatabaseSection    `yaml:"database,omitempty"`
	Queue       QueueSection       `yaml:"queue,omitempty"`
	Scheduler   SchedulerSection   `yaml:"scheduler,omitempty"`
	Retry       RetrySection       `yaml:"retry,omitempty"`
	Performance PerformanceSection `yaml:"performance,omitempty"`
	Network     NetworkSection     `yaml:"network,omitempty"`
	Security    SecuritySection    `yaml:"security,omitempty"`
	Geo         GeoSection         `yaml:"geo,omitempty"`
}

// ServerSection configures the HTTP API.
type ServerSection struct {
	Listen   string `yaml:"listen,omitempty"`
	JSONLogs bool   `yaml:"json_logs,omitempty"`
}

// DatabaseSection configures storage.
type DatabaseSection struct {
	Dir string `yaml:"dir,omitempty"`
}

// QueueSection configures the job worker.
type QueueSection struct {
	JobTimeout time.Duration `yaml:"job_timeout,omitempty"`
}

// SchedulerSection configures periodic rescans.
// Interval is a pointer so that an explicit 0 disables the scheduler.
type SchedulerSection struct {
	Interval *time.Duration `yaml:"interval,omitempty"`
	Targets  []string       `yaml:"targets,omitempty"`
}

// RetrySection configures the performance sub-audit retry policy.
type RetrySection struct {
	Attempts int           `yaml:"attempts,omitempty"`
	Delay    time.Duration `yaml:"delay,omitempty"`
	Strategy string        `yaml:"strategy,omitempty"`
}

// PerformanceSection configures Chrome and Lighthouse.
type PerformanceSection struct {
	ChromePath        string        `yaml:"chrome_path,omitempty"`
	DebugPort         int           `yaml:"debug_port,omitempty"`
	Headful           bool          `yaml:"headful,omitempty"`
	LighthouseCommand string        `yaml:"lighthouse_command,omitempty"`
	AuditTimeout      time.Duration `yaml:"audit_timeout,omitempty"`
}

// NetworkSection configures ping and traceroute.
type NetworkSection struct {
	PingCount         int           `yaml:"ping_count,omitempty"`
	PingTimeout       time.Duration `yaml:"ping_timeout,omitempty"`
	PingCommand       string        `yaml:"ping_command,omitempty"`
	TracerouteCommand string        `yaml:"traceroute_command,omitempty"`
	TracerouteTimeout time.Duration `yaml:"traceroute_timeout,omitempty"`
}

// SecuritySection configures the ZAP API client.
type SecuritySection struct {
	ZAPAddress   string        `yaml:"zap_address,omitempty"`
	ZAPAPIKey    string        `yaml:"zap_api_key,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
	RetryMax     *int          `yaml:"retry_max,omitempty"`
}

// GeoSection configures hop geolocation.
type GeoSection struct {
	IPInfoURL   string  `yaml:"ipinfo_url,omitempty"`
	IPInfoToken string  `yaml:"ipinfo_token,omitempty"`
	Rate        float64 `yaml:"rate,omitempty"`
}

// Apply overlays the non-zero values of the file onto cfg.
func (f *File) Apply(cfg *Config) {
	setString(&cfg.ListenAddress, f.Server.Listen)
	cfg.JSONLogs = cfg.JSONLogs || f.Server.JSONLogs
	setString(&cfg.DBDir, f.Database.Dir)
	setDuration(&cfg.JobTimeout, f.Queue.JobTimeout)

	if f.Scheduler.Interval != nil {
		cfg.RescanInterval = *f.Scheduler.Interval
	}
	cfg.Targets = append(cfg.Targets, f.Scheduler.Targets...)

	setInt(&cfg.RetryAttempts, f.Retry.Attempts)
	setDuration(&cfg.RetryDelay, f.Retry.Delay)
	if f.Retry.Strategy != "" {
		cfg.RetryStrategy = RetryStrategy(f.Retry.Strategy)
	}

	setString(&cfg.ChromePath, f.Performance.ChromePath)
	setInt(&cfg.DebugPort, f.Performance.DebugPort)
	cfg.Headful = cfg.Headful || f.Performance.Headful
	setString(&cfg.LighthouseCommand, f.Performance.LighthouseCommand)
	setDuration(&cfg.AuditTimeout, f.Performance.AuditTimeout)

	setInt(&cfg.PingCount, f.Network.PingCount)
	setDuration(&cfg.PingTimeout, f.Network.PingTimeout)
	setString(&cfg.PingCommand, f.Network.PingCommand)
	setString(&cfg.TracerouteCommand, f.Network.TracerouteCommand)
	setDuration(&cfg.TracerouteTimeout, f.Network.TracerouteTimeout)

	setString(&cfg.ZAPAddress, f.Security.ZAPAddress)
	setString(&cfg.ZAPAPIKey, f.Security.ZAPAPIKey)
	setDuration(&cfg.ZAPPollInterval, f.Security.PollInterval)
	if f.Security.RetryMax != nil {
		cfg.ZAPRetryMax = *f.Security.RetryMax
	}

	setString(&cfg.IPInfoURL, f.Geo.IPInfoURL)
	setString(&cfg.IPInfoToken, f.Geo.IPInfoToken)
	if f.Geo.Rate != 0 {
		cfg.GeoRate = f.Geo.Rate
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
