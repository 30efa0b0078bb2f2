package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/prototypedave/hybridTool/internal/model"
	"github.com/prototypedave/hybridTool/internal/probe/performance"
	"github.com/prototypedave/hybridTool/internal/session"
)

// fakeSink records every write.
type fakeSink struct {
	mu       sync.Mutex
	saved    map[model.ResultKind]any
	failures map[model.ResultKind]error
	cleared  map[model.ResultKind]int
	err      error
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		saved:    make(map[model.ResultKind]any),
		failures: make(map[model.ResultKind]error),
		cleared:  make(map[model.ResultKind]int),
	}
}

func (s *fakeSink) Save(_ context.Context, kind model.ResultKind, _, _ string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved[kind] = payload
	return nil
}

func (s *fakeSink) RecordFailure(_ context.Context, kind model.ResultKind, _, _ string, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.failures[kind] = cause
	return nil
}

func (s *fakeSink) ClearFailure(_ context.Context, kind model.ResultKind, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.failures, kind)
	s.cleared[kind]++
	return nil
}

type fakeHandle struct{}

func (fakeHandle) Endpoint() string { return "127.0.0.1:9222" }
func (fakeHandle) Port() int { return 9222 }
func (fakeHandle) Alive(context.Context) bool { return true }
func (fakeHandle) Reset(context.Context) error { return nil }
func (fakeHandle) Close() error { return nil }

type fakeSessions struct {
	mu           sync.Mutex
	err          error
	acquireCount int
	releaseCount int
}

func (f *fakeSessions) Acquire(context.Context) (session.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquireCount++
	if f.err != nil {
		return nil, f.err
	}
	return fakeHandle{}, nil
}

func (f *fakeSessions) Release(context.Context, session.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCount++
}

type fakePerformance struct {
	err       error
	callCount int
}

func (f *fakePerformance) Run(_ context.Context, target model.Target, _ []model.FormFactor, _ performance.Session) (*model.PerformanceResult, error) {
	f.callCount++
	if f.err != nil {
		return nil, f.err
	}
	return &model.PerformanceResult{Target: target.String(), Status: model.ProbeStatusOK}, nil
}

type fakeNetwork struct {
	result    *model.NetworkResult
	err       error
	callCount int
}

func (f *fakeNetwork) Run(context.Context, model.Target) (*model.NetworkResult, error) {
	f.callCount++
	return f.result, f.err
}

type fakeSecurity struct {
	changed   bool
	err       error
	callCount int
}

func (f *fakeSecurity) Run(_ context.Context, target model.Target) (*model.SecurityResult, error) {
	f.callCount++
	if f.err != nil {
		return nil, f.err
	}
	return &model.SecurityResult{Target: target.String(), Changed: f.changed}, nil
}

func okNetwork() *fakeNetwork {
	return &fakeNetwork{result: &model.NetworkResult{
		Status:     model.ProbeStatusOK,
		Ping:       &model.PingMetrics{Host: "example.com", Alive: true, PacketLoss: "0.00"},
		Traceroute: &model.TracerouteResult{Host: "example.com"},
	}}
}

var errProbe = errors.New("probe exploded")
