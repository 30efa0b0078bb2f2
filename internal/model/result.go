package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ResultKind names a stored result collection.
// Each kind is kept in its own table, keyed by target.
type ResultKind string

const (
	// ResultPerformance holds PerformanceResult payloads.
	ResultPerformance ResultKind = "performance"
	// ResultPing holds PingMetrics payloads.
	ResultPing ResultKind = "ping"
	// ResultTraceroute holds TracerouteResult payloads.
	ResultTraceroute ResultKind = "traceroute"
	// ResultSecurity holds SecurityResult payloads.
	ResultSecurity ResultKind = "security"
)

// AllResultKinds returns every result kind.
func AllResultKinds() []ResultKind {
	return []ResultKind{ResultPerformance, ResultPing, ResultTraceroute, ResultSecurity}
}

// ParseResultKind converts a string into a ResultKind.
func ParseResultKind(s string) (ResultKind, error) {
	for _, k := range AllResultKinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown result kind %q", s)
}

// ProbeStatus summarizes how complete a probe outcome is.
type ProbeStatus string

const (
	// ProbeStatusOK means every sub-measurement succeeded.
	ProbeStatusOK ProbeStatus = "ok"
	// ProbeStatusPartial means some sub-measurements failed.
	ProbeStatusPartial ProbeStatus = "partial"
	// ProbeStatusError means nothing usable was produced.
	ProbeStatusError ProbeStatus = "error"
)

// Record is the latest stored state of one result kind for one target.
// Payload is empty when only failed attempts have been recorded.
type Record struct {
	Kind        ResultKind      `json:"kind"`
	Target      string          `json:"target"`
	JobID       string          `json:"jobId,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	LastError   string          `json:"lastError,omitempty"`
	LastErrorAt *time.Time      `json:"lastErrorAt,omitempty"`
}

// HasPayload reports whether a successful result was ever stored.
func (r *Record) HasPayload() bool {
	return len(r.Payload) > 0
}

// LastAttemptFailed reports whether the most recent attempt failed.
func (r *Record) LastAttemptFailed() bool {
	return r.LastErrorAt != nil && !r.LastErrorAt.Before(r.UpdatedAt)
}

// Decode unmarshals the payload into v.
func (r *Record) Decode(v any) error {
	if !r.HasPayload() {
		return ErrNotFound
	}
	return json.Unmarshal(r.Payload, v)
}
