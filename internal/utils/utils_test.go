package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitForReturnsAfterSleep(t *testing.T) {
	original := sleep
	var slept time.Duration
	sleep = func(d time.Duration) { slept = d }
	defer func() { sleep = original }()

	if err := WaitFor(context.Background(), 3*time.Second); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if slept != 3*time.Second {
		t.Fatalf("expected to sleep 3s, slept %v", slept)
	}
}

func TestWaitForSkipsNonPositiveDurations(t *testing.T) {
	original := sleep
	sleep = func(time.Duration) { t.Fatalf("sleep must not be called") }
	defer func() { sleep = original }()

	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestWaitForHonoursCancellation(t *testing.T) {
	original := sleep
	started := make(chan struct{})
	release := make(chan struct{})
	sleep = func(time.Duration) {
		close(started)
		<-release
	}
	defer func() {
		close(release)
		sleep = original
	}()

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- WaitFor(ctx, time.Hour) }()

	<-started
	cancel()

	if err := <-errs; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		attempt int
		limit   time.Duration
		want    time.Duration
	}{
		{name: "first attempt", base: time.Second, attempt: 0, limit: 30 * time.Second, want: time.Second},
		{name: "doubles", base: time.Second, attempt: 3, limit: 30 * time.Second, want: 8 * time.Second},
		{name: "capped", base: time.Second, attempt: 10, limit: 30 * time.Second, want: 30 * time.Second},
		{name: "no cap", base: time.Second, attempt: 6, want: 64 * time.Second},
		{name: "negative attempt", base: time.Second, attempt: -2, limit: time.Minute, want: time.Second},
		{name: "zero base", base: 0, attempt: 4, limit: time.Minute, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Backoff(tt.base, tt.attempt, tt.limit); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
