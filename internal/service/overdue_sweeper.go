package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/inventory-loan-api/pkg/jobs"
)

const overdueJobType = "loans.sync_overdue"

type overdueSyncer interface {
	SyncOverdue(ctx context.Context) (int64, error)
}

// OverdueSweeper periodically persists derived overdue status through the job queue.
type OverdueSweeper struct {
	loans    overdueSyncer
	interval time.Duration
	queue    *jobs.Queue
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewOverdueSweeper builds a sweeper. A non-positive interval disables the ticker but keeps
// Trigger usable.
func NewOverdueSweeper(loans overdueSyncer, interval time.Duration, logger *zap.Logger) *OverdueSweeper {
	logger = defaultLogger(logger)
	s := &OverdueSweeper{loans: loans, interval: interval, logger: logger}
	s.queue = jobs.NewQueue("overdue-sweep", s.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 1,
		MaxRetries: 2,
		RetryDelay: 5 * time.Second,
		Logger:     logger,
	})
	return s
}

// Start launches the queue and, when configured, the ticker.
func (s *OverdueSweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.queue.Start(ctx)

	if s.interval <= 0 {
		close(s.done)
		return
	}
	go s.loop(ctx, s.done)
}

// Stop halts the ticker and drains the worker.
func (s *OverdueSweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.queue.Stop()
}

// Trigger schedules a sweep. A sweep already waiting in the queue absorbs the request.
func (s *OverdueSweeper) Trigger() error {
	err := s.queue.TryEnqueue(jobs.Job{Type: overdueJobType})
	if errors.Is(err, jobs.ErrQueueFull) {
		return nil
	}
	return err
}

func (s *OverdueSweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Trigger(); err != nil {
				s.logger.Warn("failed to schedule overdue sweep", zap.Error(err))
			}
		}
	}
}

func (s *OverdueSweeper) handle(ctx context.Context, job jobs.Job) error {
	n, err := s.loans.SyncOverdue(ctx)
	if err != nil {
		return err
	}
	s.logger.Debug("overdue sweep finished", zap.String("job_id", job.ID), zap.Int64("updated", n))
	return nil
}
