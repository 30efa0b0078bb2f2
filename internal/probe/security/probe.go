package security

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/prototypedave/hybridTool/internal/model"
)

// History returns the alert set stored by the previous run, or nil.
type History interface {
	LatestSecurity(ctx context.Context, target string) (*model.SecurityResult, error)
}

// Probe runs a ZAP scan and merges its alerts with the stored set.
type Probe struct {
	api      API
	history  History
	clock    Clock
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Probe.
type Option func(*Probe)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Probe) {
		p.logger = logger
	}
}

// WithPollInterval sets the wait between status polls.
func WithPollInterval(d time.Duration) Option {
	return func(p *Probe) {
		p.interval = d
	}
}

// WithPollClock replaces the clock used between polls.
func WithPollClock(c Clock) Option {
	return func(p *Probe) {
		p.clock = c
	}
}

// WithNow overrides the time source used for CapturedAt and FirstSeen.
func WithNow(now func() time.Time) Option {
	return func(p *Probe) {
		p.now = now
	}
}

// NewProbe creates a security probe.
func NewProbe(api API, history History, opts ...Option) *Probe {
	p := &Probe{
		api:      api,
		history:  history,
		clock:    realClock{},
		interval: DefaultPollInterval,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run scans target. The returned result has Changed set when its alert set
// differs from the stored one; unchanged results need not be persisted.
func (p *Probe) Run(ctx context.Context, target model.Target) (*model.SecurityResult, error) {
	scan := NewScan(p.api, target.String(), p.clock, p.interval, p.logger)
	raw, err := scan.Run(ctx)
	if err != nil {
		return nil, model.NewProbeError(model.ProbeSecurity, err)
	}

	prev, err := p.history.LatestSecurity(ctx, target.String())
	if err != nil {
		return nil, model.NewProbeError(model.ProbeSecurity, fmt.Errorf("failed to load previous alerts: %w", err))
	}

	now := p.now()
	result := Merge(Dedup(raw), prev, now)
	result.Target = target.String()

	p.logger.Info("security scan completed",
		"target", target.String(),
		"alerts", len(result.Alerts),
		"new_alerts", len(result.NewAlertRefs),
		"changed", result.Changed,
	)
	return result, nil
}

// Dedup converts raw alerts, keeping the first alert of each alertRef.
// The result is sorted by alertRef.
func Dedup(raw []ZAPAlert) []model.Alert {
	seen := make(map[string]bool, len(raw))
	alerts := make([]model.Alert, 0, len(raw))
	for _, z := range raw {
		ref := z.AlertRef
		if ref == "" {
			ref = z.PluginID
		}
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true
		alerts = append(alerts, convert(ref, z))
	}
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].AlertRef < alerts[j].AlertRef
	})
	return alerts
}

func convert(ref string, z ZAPAlert) model.Alert {
	name := z.Name
	if name == "" {
		name = z.Alert
	}
	cwe, _ := strconv.Atoi(z.CWEID)
	wasc, _ := strconv.Atoi(z.WASCID)
	return model.Alert{
		AlertRef:    ref,
		Name:        name,
		Risk:        z.Risk,
		Description: z.Description,
		Confidence:  z.Confidence,
		Evidence:    z.Evidence,
		Solution:    z.Solution,
		Reference:   z.Reference,
		Attacks:     z.Attack,
		CWEID:       cwe,
		WASCID:      wasc,
		Tags: model.AlertTags{
			OWASP2021A05: z.Tags["OWASP_2021_A05"],
			OWASP2017A06: z.Tags["OWASP_2017_A06"],
		},
	}
}

// Merge carries firstSeen over from prev and computes the digest.
// alerts must be sorted by alertRef.
func Merge(alerts []model.Alert, prev *model.SecurityResult, now time.Time) *model.SecurityResult {
	known := make(map[string]model.Alert)
	if prev != nil {
		for _, a := range prev.Alerts {
			known[a.AlertRef] = a
		}
	}

	result := &model.SecurityResult{
		Alerts:     make([]model.Alert, len(alerts)),
		CapturedAt: now,
	}
	for i, a := range alerts {
		if old, ok := known[a.AlertRef]; ok {
			a.FirstSeen = old.FirstSeen
			if a.FirstSeen == nil {
				seen := prev.CapturedAt
				a.FirstSeen = &seen
			}
		} else {
			seen := now
			a.FirstSeen = &seen
			result.NewAlertRefs = append(result.NewAlertRefs, a.AlertRef)
		}
		result.Alerts[i] = a
	}

	result.Digest = Digest(alerts)
	result.Changed = prev == nil || prev.Digest != result.Digest
	return result
}

// Digest hashes the content of an alert set, ignoring firstSeen.
func Digest(alerts []model.Alert) string {
	h := sha3.New256()
	enc := json.NewEncoder(h)
	for _, a := range alerts {
		a.FirstSeen = nil
		// Alerts are plain strings and ints; encoding cannot fail.
		_ = enc.Encode(a)
	}
	return hex.EncodeToString(h.Sum(nil))
}
