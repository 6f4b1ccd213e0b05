package cache

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestJanitorSurvivesPanickingSweep(t *testing.T) {
	logger := logrus.New()
	logBuf := &bytes.Buffer{}
	logger.SetOutput(logBuf)

	svc := New(Options{})
	janitor := NewJanitor(svc, time.Second, logger)

	calls := 0
	janitor.sweep = func() SweepResult {
		calls++
		if calls == 1 {
			panic("boom")
		}
		return svc.Sweep()
	}

	if _, err := janitor.runOnce(); err == nil {
		t.Fatalf("expected recovered panic to surface as error")
	}
	if !strings.Contains(logBuf.String(), "sweep panic") {
		t.Fatalf("expected panic to be logged, got %s", logBuf.String())
	}
	if _, err := janitor.runOnce(); err != nil {
		t.Fatalf("second sweep should succeed: %v", err)
	}
	if svc.Stats().Sweeps != 1 {
		t.Fatalf("expected one completed sweep")
	}
}

func TestJanitorRunSweepsPeriodicallyAndStops(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	svc := New(Options{})
	janitor := NewJanitor(svc, 10*time.Millisecond, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		janitor.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for svc.Stats().Sweeps < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("janitor did not sweep in time")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("janitor did not stop after cancel")
	}
}

func TestNewJanitorDefaultsIntervalToExistenceTTL(t *testing.T) {
	svc := New(Options{ExistenceTTL: 7 * time.Second})
	janitor := NewJanitor(svc, 0, logrus.New())
	if janitor.interval != 7*time.Second {
		t.Fatalf("expected interval to follow existence ttl, got %s", janitor.interval)
	}
}
