package model

import (
	"fmt"
	"slices"
	"time"
)

// JobStatus represents the lifecycle state of a scan job.
type JobStatus string

const (
	// JobPending indicates the job is stored and waiting in the queue.
	JobPending JobStatus = "pending"
	// JobRunning indicates the worker is executing the job.
	JobRunning JobStatus = "running"
	// JobDone indicates every requested probe produced a result.
	JobDone JobStatus = "done"
	// JobFailed indicates at least one probe failed or the job timed out.
	JobFailed JobStatus = "failed"
)

// IsTerminal returns true for states a job never leaves.
func (s JobStatus) IsTerminal() bool {
	return s == JobDone || s == JobFailed
}

// ProbeKind identifies one of the three probes run for a job.
type ProbeKind string

const (
	// ProbePerformance measures page performance with Lighthouse.
	ProbePerformance ProbeKind = "performance"
	// ProbeNetwork measures reachability with ping and traceroute.
	ProbeNetwork ProbeKind = "network"
	// ProbeSecurity runs an OWASP ZAP spider and active scan.
	ProbeSecurity ProbeKind = "security"
)

// AllProbeKinds returns the probe kinds in execution order.
func AllProbeKinds() []ProbeKind {
	return []ProbeKind{ProbePerformance, ProbeNetwork, ProbeSecurity}
}

// FormFactor is the device class emulated by a performance audit.
type FormFactor string

const (
	// FormFactorMobile emulates a mid-tier phone on a throttled network.
	FormFactorMobile FormFactor = "mobile"
	// FormFactorDesktop emulates a desktop browser on a fast network.
	FormFactorDesktop FormFactor = "desktop"
)

// AllFormFactors returns the form factors in audit order.
func AllFormFactors() []FormFactor {
	return []FormFactor{FormFactorMobile, FormFactorDesktop}
}

// Options customizes a single job.
// Empty fields mean "everything": all probes, both form factors.
type Options struct {
	Probes      []ProbeKind  `json:"probes,omitempty"`
	FormFactors []FormFactor `json:"formFactors,omitempty"`
}

// Normalize fills defaults and rejects unknown values.
func (o Options) Normalize() (Options, error) {
	out := Options{
		Probes:      AllProbeKinds(),
		FormFactors: AllFormFactors(),
	}
	if len(o.Probes) > 0 {
		out.Probes = nil
		for _, p := range AllProbeKinds() {
			if slices.Contains(o.Probes, p) {
				out.Probes = append(out.Probes, p)
			}
		}
		for _, p := range o.Probes {
			if !slices.Contains(AllProbeKinds(), p) {
				return Options{}, fmt.Errorf("%w: unknown probe %q", ErrInvalidOptions, p)
			}
		}
	}
	if len(o.FormFactors) > 0 {
		out.FormFactors = nil
		for _, f := range AllFormFactors() {
			if slices.Contains(o.FormFactors, f) {
				out.FormFactors = append(out.FormFactors, f)
			}
		}
		for _, f := range o.FormFactors {
			if !slices.Contains(AllFormFactors(), f) {
				return Options{}, fmt.Errorf("%w: unknown form factor %q", ErrInvalidOptions, f)
			}
		}
	}
	return out, nil
}

// Wants reports whether the probe kind is requested.
// Un-normalized options with no probes request everything.
func (o Options) Wants(kind ProbeKind) bool {
	return len(o.Probes) == 0 || slices.Contains(o.Probes, kind)
}

// Job is a single submitted scan.
// A job references exactly one target for its whole life.
type Job struct {
	ID          string     `json:"id"`
	Target      string     `json:"target"`
	Options     Options    `json:"options"`
	Status      JobStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

// NewJob creates a pending job for target.
func NewJob(id string, target Target, opts Options, now time.Time) *Job {
	return &Job{
		ID:          id,
		Target:      target.String(),
		Options:     opts,
		Status:      JobPending,
		SubmittedAt: now,
	}
}

// Start marks the job as running.
func (j *Job) Start(now time.Time) {
	j.Status = JobRunning
	j.StartedAt = &now
	j.FinishedAt = nil
	j.Error = ""
}

// Complete marks the job as done.
func (j *Job) Complete(now time.Time) {
	j.Status = JobDone
	j.FinishedAt = &now
	j.Error = ""
}

// Fail marks the job as failed with the error text.
func (j *Job) Fail(now time.Time, err error) {
	j.Status = JobFailed
	j.FinishedAt = &now
	if err != nil {
		j.Error = err.Error()
	}
}

// Requeue returns an orphaned running job to pending.
func (j *Job) Requeue() {
	j.Status = JobPending
	j.StartedAt = nil
	j.FinishedAt = nil
}
