package daemon

import (
	"errors"
	"testing"
	"time"
)

func TestCronParse(t *testing.T) {
	schedule, err := NewParser().Parse("@every 10m")
	if err != nil {
		t.Fatalf("failed to parse cron expression: %v", err)
	}

	now := time.Now()
	next1 := schedule.Next(now)
	next2 := schedule.Next(next1)

	if !next2.After(next1) {
		t.Fatalf("expected next2 to be after next1, got next1=%v next2=%v", next1, next2)
	}
}

func TestSchedulerScheduleStatus(t *testing.T) {
	s := NewScheduler(func() error { return nil }, nil, nil)

	if err := s.Schedule("@every 1m"); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	next, expr, running := s.Status()
	if running {
		t.Fatalf("scheduler should not be running")
	}
	if next.IsZero() || expr != "@every 1m" {
		t.Fatalf("next run should be set after scheduling, got %v %q", next, expr)
	}
	if !s.NextRun().IsZero() {
		t.Fatalf("NextRun should be zero while the scheduler is stopped")
	}

	if err := s.Schedule("not a cron"); err == nil {
		t.Fatalf("expected error for invalid expression")
	}

	if err := s.Schedule(""); err != nil {
		t.Fatalf("clearing the schedule failed: %v", err)
	}
	next, expr, _ = s.Status()
	if !next.IsZero() || expr != "" {
		t.Fatalf("schedule should be cleared, got %v %q", next, expr)
	}
}

func TestSchedulerSkip(t *testing.T) {
	s := NewScheduler(func() error { return nil }, nil, nil)
	if err := s.Skip(); err == nil {
		t.Fatalf("Skip without a schedule should fail")
	}

	if err := s.Schedule("@every 10m"); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	orig, _, _ := s.Status()
	s.Start()
	defer s.Stop()

	if err := s.Skip(); err != nil {
		t.Fatalf("Skip returned error: %v", err)
	}

	next, _, _ := s.Status()
	if !next.After(orig) {
		t.Fatalf("expected next run after skip to be later, orig=%v next=%v", orig, next)
	}
}

func TestSchedulerRunsTask(t *testing.T) {
	taskCh := make(chan struct{}, 1)
	upcomingCh := make(chan struct{}, 1)
	errCh := make(chan error, 1)

	s := NewScheduler(
		func() error {
			taskCh <- struct{}{}
			return errors.New("boom")
		},
		func(any) { upcomingCh <- struct{}{} },
		func(data any) { errCh <- data.(error) },
	)
	if err := s.Schedule("@every 1h"); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	s.mu.Lock()
	s.nextRun = time.Now().Add(50 * time.Millisecond)
	s.mu.Unlock()

	s.Start()
	defer s.Stop()

	for name, ch := range map[string]chan struct{}{"upcoming": upcomingCh, "task": taskCh} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("expected %s callback", name)
		}
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatalf("expected error")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected error callback from failed task")
	}

	next, _, _ := s.Status()
	if time.Until(next) < 30*time.Minute {
		t.Errorf("next run should move to the following slot, got %v", next)
	}
}
