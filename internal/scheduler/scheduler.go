// Package scheduler запускает периодические фоновые задачи поверх gocron.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/region23/hotelbot/pkg/logger"
	"github.com/region23/hotelbot/pkg/metrics"
)

// Scheduler реализует Runner на gocron
type Scheduler struct {
	cron    gocron.Scheduler
	logger  *logger.Logger
	timeout time.Duration

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

var _ Runner = (*Scheduler)(nil)

// New создает планировщик. timeout ограничивает одно выполнение задачи.
func New(timeout time.Duration, log *logger.Logger) (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	if log == nil {
		log = logger.Default()
	}

	return &Scheduler{
		cron:    cron,
		logger:  log.WithComponent("scheduler"),
		timeout: timeout,
	}, nil
}

// Every регистрирует задачу. Следующий запуск не начинается, пока идет предыдущий.
func (s *Scheduler) Every(name string, interval time.Duration, job JobFunc) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", name)
	}
	_, err := s.cron.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.run, name, job),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}
	s.logger.Debug("Job registered", logger.String("job", name), logger.Duration("interval", interval))
	return nil
}

func (s *Scheduler) run(name string, job JobFunc) {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	start := time.Now()
	if err := job(ctx); err != nil {
		metrics.RecordError("scheduler", name)
		s.logger.Warn("Job failed",
			logger.String("job", name),
			logger.Duration("took", time.Since(start)),
			logger.Error(err))
		return
	}
	s.logger.Debug("Job finished", logger.String("job", name), logger.Duration("took", time.Since(start)))
}

// Start запускает планировщик. Задачи останавливаются при отмене ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return errors.New("scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("Scheduler started", logger.Int("jobs", len(s.cron.Jobs())))
	return nil
}

// Stop останавливает планировщик
func (s *Scheduler) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
		}
		s.mu.Unlock()
		err = s.cron.Shutdown()
		s.logger.Info("Scheduler stopped")
	})
	return err
}

// SweepJob оборачивает Sweeper в задачу
func SweepJob(sw Sweeper) JobFunc {
	return func(ctx context.Context) error {
		_, err := sw.Sweep(ctx)
		return err
	}
}
