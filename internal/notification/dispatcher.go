package notification

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrQueueFull = errors.New("notification queue full")

type Job struct {
	Notification *Notification
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing job", "worker_id", w.ID, "notification_id", job.Notification.ID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// Store persists delivered notifications.
type Store interface {
	Create(ctx context.Context, n *Notification) error
}

type DispatcherConfig struct {
	MaxWorkers   int
	QueueSize    int
	StoreTimeout time.Duration
	MaxAttempts  int
}

// Dispatcher hands queued notifications to a fixed pool of workers that
// persist them.
type Dispatcher struct {
	store  Store
	logger *slog.Logger
	cfg    DispatcherConfig

	jobQueue   chan Job
	workerPool chan chan Job
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
	stopOnce   sync.Once
}

func NewDispatcher(store Store, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	d := &Dispatcher{
		store:      store,
		logger:     logger,
		cfg:        cfg,
		jobQueue:   make(chan Job, cfg.QueueSize),
		workerPool: make(chan chan Job, cfg.MaxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}
	d.start()
	return d
}

func (d *Dispatcher) start() {
	d.once.Do(func() {
		for i := 0; i < d.cfg.MaxWorkers; i++ {
			worker := NewWorker(i, d.workerPool, d.logger)
			worker.Start(d.ctx, &d.wg, d.process)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("notification worker pool started",
			"max_workers", d.cfg.MaxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobQueue:
			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- job:
				case <-d.ctx.Done():
					d.logger.Info("dispatcher shutting down")
					return
				}
			case <-d.ctx.Done():
				d.logger.Info("dispatcher shutting down")
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("dispatcher shutting down")
			return
		}
	}
}

// Enqueue never blocks; a full queue drops the notification.
func (d *Dispatcher) Enqueue(n *Notification) error {
	select {
	case <-d.ctx.Done():
		return context.Canceled
	default:
	}

	select {
	case d.jobQueue <- Job{Notification: n}:
		return nil
	default:
		recordDispatch("dropped")
		d.logger.Warn("notification queue full, dropping",
			"user_id", n.UserID,
			"kind", n.Kind,
			"queue_capacity", cap(d.jobQueue))
		return ErrQueueFull
	}
}

func (d *Dispatcher) process(job Job) {
	n := job.Notification
	backoff := 100 * time.Millisecond

	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(d.ctx, d.cfg.StoreTimeout)
		err := d.store.Create(ctx, n)
		cancel()
		if err == nil {
			recordDispatch("stored")
			return
		}

		d.logger.Warn("failed to store notification",
			"notification_id", n.ID,
			"user_id", n.UserID,
			"attempt", attempt,
			"error", err)

		if attempt == d.cfg.MaxAttempts {
			break
		}
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-d.ctx.Done():
			recordDispatch("cancelled")
			return
		}
	}

	recordDispatch("failed")
	d.logger.Error("giving up on notification", "notification_id", n.ID, "user_id", n.UserID)
}

// Shutdown stops the pool. Queued jobs that no worker picked up are dropped.
func (d *Dispatcher) Shutdown() {
	d.stopOnce.Do(func() {
		d.logger.Info("shutting down notification dispatcher")
		d.cancel()
		d.wg.Wait()
		d.logger.Info("notification dispatcher shutdown complete")
	})
}
