package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingTask struct {
	Task
	calls    int32
	failures int32 // Fail this many times before succeeding
	done     chan struct{}
}

func newCountingTask(failures int32) *countingTask {
	return &countingTask{
		Task:     NewTask(TaskTypeIngestAgendas, "test"),
		failures: failures,
		done:     make(chan struct{}, 10),
	}
}

func (c *countingTask) Execute(ctx context.Context) error {
	n := atomic.AddInt32(&c.calls, 1)
	c.done <- struct{}{}
	if n <= c.failures {
		return errors.New("transient")
	}
	return nil
}

func waitFor(t *testing.T, ch chan struct{}, timeout time.Duration) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatal("Timed out waiting for task")
	}
}

func TestNewSchedulerRejectsBadSchedule(t *testing.T) {
	factory := func(source string) []TaskInterface { return nil }

	if _, err := NewScheduler("every tuesday", time.UTC, 1, factory); err == nil {
		t.Error("Expected error for invalid cron spec")
	}

	s, err := NewScheduler(DefaultSchedule, time.UTC, 0, factory)
	if err != nil {
		t.Fatalf("Expected default schedule to parse, got: %v", err)
	}
	if s.workerCount != 1 {
		t.Errorf("Expected worker count to default to 1, got %d", s.workerCount)
	}
}

func TestSchedulerRunsStartupTasks(t *testing.T) {
	task := newCountingTask(0)
	var sources []string

	s, err := NewScheduler(DefaultSchedule, time.UTC, 1, func(source string) []TaskInterface {
		sources = append(sources, source)
		return []TaskInterface{task}
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	s.Start()
	defer s.Stop()

	waitFor(t, task.done, 2*time.Second)

	if len(sources) != 1 || sources[0] != "startup" {
		t.Errorf("Expected one startup cycle, got %v", sources)
	}
}

func TestSchedulerEnqueueTask(t *testing.T) {
	s, err := NewScheduler("", time.UTC, 2, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	s.Start()
	defer s.Stop()

	task := newCountingTask(0)
	if err := s.EnqueueTask(task); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	waitFor(t, task.done, 2*time.Second)
}

func TestSchedulerRetriesFailedTask(t *testing.T) {
	s, err := NewScheduler("", time.UTC, 1, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	s.Start()
	defer s.Stop()

	task := newCountingTask(1)
	if err := s.EnqueueTask(task); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	waitFor(t, task.done, 2*time.Second)
	waitFor(t, task.done, 3*time.Second)

	if task.GetRetryCount() != 1 {
		t.Errorf("Expected 1 retry, got %d", task.GetRetryCount())
	}
}

func TestSchedulerRejectsAfterStop(t *testing.T) {
	s, err := NewScheduler("", time.UTC, 1, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	s.Start()
	s.Stop()

	if err := s.EnqueueTask(newCountingTask(0)); err == nil {
		t.Error("Expected enqueue after stop to fail")
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		retry int
		want  time.Duration
	}{
		{retry: 0, want: time.Second},
		{retry: 1, want: time.Second},
		{retry: 2, want: 2 * time.Second},
		{retry: 5, want: 16 * time.Second},
		{retry: 6, want: 30 * time.Second},
		{retry: 64, want: 30 * time.Second},
	}

	for _, tt := range tests {
		if got := RetryDelay(tt.retry); got != tt.want {
			t.Errorf("Retry %d: expected %v, got %v", tt.retry, tt.want, got)
		}
	}
}

func TestTaskRetryAccounting(t *testing.T) {
	task := NewTask(TaskTypeNotifyMeetings, "api")

	if task.GetSource() != "api" || task.GetType() != TaskTypeNotifyMeetings {
		t.Errorf("Unexpected task %+v", task)
	}
	if task.GetDuration() != 0 {
		t.Error("Expected zero duration before start")
	}

	for i := 0; i < DefaultMaxRetries; i++ {
		if !task.CanRetry() {
			t.Fatalf("Expected retry %d to be allowed", i+1)
		}
		task.IncrementRetryCount()
	}
	if task.CanRetry() {
		t.Error("Expected retries to be exhausted")
	}
}
