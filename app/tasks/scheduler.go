package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultSchedule    = "0 */6 * * *"
	DefaultTaskTimeout = 5 * time.Minute
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// TaskFactory builds the tasks of one scheduled cycle, in execution order.
type TaskFactory func(source string) []TaskInterface

type Scheduler struct {
	cron        *cron.Cron
	factory     TaskFactory
	workerCount int
	taskTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

// NewScheduler runs the factory's tasks on start and then on every tick of
// the cron schedule, interpreted in loc.
func NewScheduler(schedule string, loc *time.Location, workerCount int, factory TaskFactory) (*Scheduler, error) {
	if workerCount <= 0 {
		workerCount = 1
	}
	if loc == nil {
		loc = time.UTC
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		cron:        cron.New(cron.WithLocation(loc)),
		factory:     factory,
		workerCount: workerCount,
		taskTimeout: DefaultTaskTimeout,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 100),
	}

	if schedule != "" && factory != nil {
		if _, err := s.cron.AddFunc(schedule, func() { s.enqueueTasks("cron") }); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to parse schedule %q: %w", schedule, err)
		}
	}

	return s, nil
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.enqueueTasks("startup")
	s.cron.Start()

	for _, entry := range s.cron.Entries() {
		slog.Info("Next scheduled run", "at", entry.Next)
	}
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueTasks(source string) {
	if s.factory == nil {
		return
	}

	for _, task := range s.factory(source) {
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue task", "type", string(task.GetType()), "source", source, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := RetryDelay(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSource(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	go func() {
		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-time.After(retryDelay):
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}

// RetryDelay doubles from one second per attempt, capped at 30 seconds.
func RetryDelay(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	if retryCount > 6 {
		return 30 * time.Second
	}
	delay := time.Duration(1<<uint(retryCount-1)) * time.Second
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return delay
}
