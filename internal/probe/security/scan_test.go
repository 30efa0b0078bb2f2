package security

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/prototypedave/hybridTool/internal/log"
)

func TestScanRun(t *testing.T) {
	t.Parallel()

	t.Run("walks every phase", func(t *testing.T) {
		t.Parallel()

		api := &fakeAPI{alerts: []ZAPAlert{{AlertRef: "10020"}}}
		clock := &instantClock{}
		scan := NewScan(api, "https://example.com/", clock, time.Second, log.Discard())

		if scan.Phase() != PhaseQueued {
			t.Errorf("expected queued, got %s", scan.Phase())
		}

		alerts, err := scan.Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(alerts) != 1 {
			t.Errorf("expected 1 alert, got %d", len(alerts))
		}

		want := []Phase{PhaseQueued, PhaseCrawling, PhaseActiveScanning, PhaseDone}
		if !slices.Equal(scan.History(), want) {
			t.Errorf("expected %v, got %v", want, scan.History())
		}
		// 0, 50, 100 for each scan: two waits each.
		if clock.waits != 4 {
			t.Errorf("expected 4 waits, got %d", clock.waits)
		}
		if api.spiderPolls != 3 || api.ascanPolls != 3 {
			t.Errorf("expected 3 polls each, got spider=%d ascan=%d", api.spiderPolls, api.ascanPolls)
		}
	})

	t.Run("failure moves to failed", func(t *testing.T) {
		t.Parallel()

		api := &fakeAPI{ascanErr: errors.New("url not found")}
		scan := NewScan(api, "https://example.com/", &instantClock{}, time.Second, log.Discard())

		if _, err := scan.Run(context.Background()); err == nil {
			t.Fatal("expected error")
		}
		want := []Phase{PhaseQueued, PhaseCrawling, PhaseActiveScanning, PhaseFailed}
		if !slices.Equal(scan.History(), want) {
			t.Errorf("expected %v, got %v", want, scan.History())
		}
	})

	t.Run("cannot run twice", func(t *testing.T) {
		t.Parallel()

		scan := NewScan(&fakeAPI{}, "https://example.com/", &instantClock{}, time.Second, log.Discard())
		if _, err := scan.Run(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := scan.Run(context.Background()); err == nil {
			t.Error("expected error on second run")
		}
	})

	t.Run("cancelled while polling", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// A nil channel blocks forever, so only ctx can end the wait.
		scan := NewScan(&fakeAPI{}, "https://example.com/", blockingClock{}, time.Second, log.Discard())
		_, err := scan.Run(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if scan.Phase() != PhaseFailed {
			t.Errorf("expected failed, got %s", scan.Phase())
		}
	})
}

type blockingClock struct{}

func (blockingClock) After(time.Duration) <-chan time.Time { return nil }
