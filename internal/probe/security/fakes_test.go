package security

import (
	"context"
	"sync"
	"time"

	"github.com/prototypedave/hybridTool/internal/model"
)

// fakeAPI reports progress in steps of 50 and returns fixed alerts.
type fakeAPI struct {
	mu          sync.Mutex
	alerts      []ZAPAlert
	spiderErr   error
	ascanErr    error
	spiderPolls int
	ascanPolls  int
	callCount   int
}

func (f *fakeAPI) StartSpider(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	return "1", f.spiderErr
}

func (f *fakeAPI) SpiderStatus(context.Context, string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	f.spiderPolls++
	return min(100, (f.spiderPolls-1)*50), nil
}

func (f *fakeAPI) StartActiveScan(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	return "2", f.ascanErr
}

func (f *fakeAPI) ActiveScanStatus(context.Context, string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	f.ascanPolls++
	return min(100, (f.ascanPolls-1)*50), nil
}

func (f *fakeAPI) Alerts(context.Context, string) ([]ZAPAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	return f.alerts, nil
}

// instantClock fires immediately and counts the waits.
type instantClock struct {
	mu    sync.Mutex
	waits int
}

func (c *instantClock) After(time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits++
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

type fakeHistory struct {
	result    *model.SecurityResult
	err       error
	callCount int
}

func (f *fakeHistory) LatestSecurity(context.Context, string) (*model.SecurityResult, error) {
	f.callCount++
	return f.result, f.err
}
