package attachment

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/expense-reimbursement/internal/core/events"
)

type DeleteJob struct {
	URL       string
	ExpenseID string
}

type Worker struct {
	ID         int
	WorkerPool chan chan DeleteJob
	JobChannel chan DeleteJob
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan DeleteJob, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan DeleteJob),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(DeleteJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("cleaner worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("cleaner worker processing job", "worker_id", w.ID, "url", job.URL)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("cleaner worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type CleanerConfig struct {
	MaxWorkers    int
	JobQueueSize  int
	DeleteTimeout time.Duration
}

// Cleaner deletes orphaned attachment files in the background. Failures are logged and dropped.
type Cleaner struct {
	store         Store
	logger        *slog.Logger
	deleteTimeout time.Duration

	jobQueue   chan DeleteJob
	workerPool chan chan DeleteJob
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	pending    sync.WaitGroup
	once       sync.Once
}

func NewCleaner(store Store, config CleanerConfig, logger *slog.Logger) *Cleaner {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	deleteTimeout := config.DeleteTimeout
	if deleteTimeout <= 0 {
		deleteTimeout = 30 * time.Second
	}

	c := &Cleaner{
		store:         store,
		logger:        logger,
		deleteTimeout: deleteTimeout,
		maxWorkers:    maxWorkers,
		jobQueue:      make(chan DeleteJob, jobQueueSize),
		workerPool:    make(chan chan DeleteJob, maxWorkers),
		ctx:           ctx,
		cancel:        cancel,
	}

	c.startWorkerPool()

	return c
}

func (c *Cleaner) startWorkerPool() {
	c.once.Do(func() {
		for i := 0; i < c.maxWorkers; i++ {
			worker := NewWorker(i, c.workerPool, c.logger)
			worker.Start(c.ctx, &c.wg, c.process)
		}

		c.wg.Add(1)
		go c.dispatch()

		c.logger.Info("attachment cleaner started",
			"max_workers", c.maxWorkers,
			"queue_size", cap(c.jobQueue))
	})
}

func (c *Cleaner) dispatch() {
	defer c.wg.Done()

	for {
		select {
		case job := <-c.jobQueue:
			select {
			case jobChannel := <-c.workerPool:
				select {
				case jobChannel <- job:
				case <-c.ctx.Done():
					c.pending.Done()
					c.logger.Info("cleaner dispatcher shutting down")
					return
				}
			case <-c.ctx.Done():
				c.pending.Done()
				c.logger.Info("cleaner dispatcher shutting down")
				return
			}
		case <-c.ctx.Done():
			c.logger.Info("cleaner dispatcher shutting down")
			return
		}
	}
}

// Enqueue schedules a deletion. It reports false when the queue is full or the cleaner stopped.
func (c *Cleaner) Enqueue(job DeleteJob) bool {
	if c.ctx.Err() != nil {
		return false
	}

	c.pending.Add(1)
	select {
	case c.jobQueue <- job:
		return true
	default:
		c.pending.Done()
		c.logger.Warn("attachment cleaner queue full, dropping deletion",
			"url", job.URL,
			"queue_capacity", cap(c.jobQueue))
		return false
	}
}

func (c *Cleaner) process(job DeleteJob) {
	defer c.pending.Done()

	ctx, cancel := context.WithTimeout(c.ctx, c.deleteTimeout)
	defer cancel()

	if err := c.store.Delete(ctx, job.URL); err != nil {
		c.logger.Warn("attachment delete failed",
			"error", err,
			"url", job.URL,
			"expense_id", job.ExpenseID)
		return
	}
	c.logger.Debug("attachment deleted", "url", job.URL, "expense_id", job.ExpenseID)
}

// Drain blocks until every enqueued job was processed.
func (c *Cleaner) Drain() {
	c.pending.Wait()
}

func (c *Cleaner) Shutdown() {
	c.logger.Info("shutting down attachment cleaner")
	c.cancel()
	c.wg.Wait()
	c.logger.Info("attachment cleaner shutdown complete")
}

func (c *Cleaner) HandleExpensesDeleted(ctx context.Context, event events.Event) error {
	deleted, ok := event.(*events.ExpensesDeletedEvent)
	if !ok {
		c.logger.Error("invalid event type for expenses deleted handler", "event_type", event.EventType())
		return fmt.Errorf("expected ExpensesDeletedEvent, got %T", event)
	}

	queued := 0
	for _, url := range deleted.AttachmentURLs {
		if url == "" {
			continue
		}
		if c.Enqueue(DeleteJob{URL: url}) {
			queued++
		}
	}

	c.logger.Info("attachment deletions queued",
		"owner_id", deleted.OwnerID,
		"expenses", len(deleted.ExpenseIDs),
		"queued", queued,
		"event_id", deleted.EventID())
	return nil
}

func (c *Cleaner) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeExpensesDeleted, c.HandleExpensesDeleted)

	c.logger.Info("attachment event handlers registered",
		"handlers", []string{events.EventTypeExpensesDeleted})
}
