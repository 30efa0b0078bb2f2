package report

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/prototypedave/hybridTool/internal/model"
)

// riskLevels lists ZAP risk names from most to least severe.
var riskLevels = []string{"High", "Medium", "Low", "Informational"}

// Latester reads the latest stored record of a kind for a target.
type Latester interface {
	Latest(ctx context.Context, kind model.ResultKind, target string) (*model.Record, error)
}

// Summary is everything known about one target.
// A nil section means nothing was stored for that kind.
type Summary struct {
	Target      string                   `json:"target"`
	GeneratedAt time.Time                `json:"generatedAt"`
	Job         *model.Job               `json:"job,omitempty"`
	Performance *model.PerformanceResult `json:"performance,omitempty"`
	Ping        *model.PingMetrics       `json:"ping,omitempty"`
	Traceroute  *model.TracerouteResult  `json:"traceroute,omitempty"`
	Security    *model.SecurityResult    `json:"security,omitempty"`

	// Failures holds the error of every kind whose most recent attempt failed.
	Failures map[model.ResultKind]string `json:"failures,omitempty"`
}

// Load builds the Summary of target from the store.
// It returns model.ErrNotFound when no kind has any record.
func Load(ctx context.Context, store Latester, target string, now time.Time) (*Summary, error) {
	s := &Summary{Target: target, GeneratedAt: now}
	found := false

	for _, kind := range model.AllResultKinds() {
		rec, err := store.Latest(ctx, kind, target)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		found = true

		if rec.LastAttemptFailed() {
			if s.Failures == nil {
				s.Failures = make(map[model.ResultKind]string)
			}
			s.Failures[kind] = rec.LastError
		}
		if !rec.HasPayload() {
			continue
		}
		if err := s.decode(kind, rec); err != nil {
			return nil, fmt.Errorf("%w: failed to decode %s result: %w", model.ErrPersistence, kind, err)
		}
	}

	if !found {
		return nil, fmt.Errorf("%w: nothing stored for %s", model.ErrNotFound, target)
	}
	return s, nil
}

func (s *Summary) decode(kind model.ResultKind, rec *model.Record) error {
	switch kind {
	case model.ResultPerformance:
		s.Performance = &model.PerformanceResult{}
		return rec.Decode(s.Performance)
	case model.ResultPing:
		s.Ping = &model.PingMetrics{}
		return rec.Decode(s.Ping)
	case model.ResultTraceroute:
		s.Traceroute = &model.TracerouteResult{}
		return rec.Decode(s.Traceroute)
	case model.ResultSecurity:
		s.Security = &model.SecurityResult{}
		return rec.Decode(s.Security)
	}
	return nil
}

// AlertCounts returns the number of alerts per ZAP risk level.
func (s *Summary) AlertCounts() map[string]int {
	counts := make(map[string]int, len(riskLevels))
	if s.Security == nil {
		return counts
	}
	for _, a := range s.Security.Alerts {
		counts[a.Risk]++
	}
	return counts
}

// AlertsByRisk returns the alerts of one risk level in stored order.
func (s *Summary) AlertsByRisk(risk string) []model.Alert {
	if s.Security == nil {
		return nil
	}
	var out []model.Alert
	for _, a := range s.Security.Alerts {
		if a.Risk == risk {
			out = append(out, a)
		}
	}
	return out
}

// IsNewAlert reports whether ref first appeared in the latest scan.
func (s *Summary) IsNewAlert(ref string) bool {
	return s.Security != nil && slices.Contains(s.Security.NewAlertRefs, ref)
}

// FailedKinds returns the kinds whose latest attempt failed, in kind order.
func (s *Summary) FailedKinds() []model.ResultKind {
	var out []model.ResultKind
	for _, kind := range model.AllResultKinds() {
		if _, ok := s.Failures[kind]; ok {
			out = append(out, kind)
		}
	}
	return out
}
