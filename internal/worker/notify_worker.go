package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"bookline/internal/domain"
	"bookline/internal/models"
)

// NotifyWorker drains the notify_queue table and delivers queued
// notifications by email, retrying transient failures with backoff.
type NotifyWorker struct {
	repo         domain.NotificationRepository
	sender       domain.EmailSender
	retryPolicy  RetryPolicy
	pollInterval time.Duration
	batchSize    int
	logger       *log.Logger
}

// NewNotifyWorker builds a worker with sane defaults.
func NewNotifyWorker(repo domain.NotificationRepository, sender domain.EmailSender, retry RetryPolicy, logger *log.Logger) *NotifyWorker {
	if logger == nil {
		logger = log.Default()
	}

	return &NotifyWorker{
		repo:         repo,
		sender:       sender,
		retryPolicy:  retry.withDefaults(),
		pollInterval: 2 * time.Second,
		batchSize:    20,
		logger:       logger,
	}
}

// SetPollInterval overrides the queue poll interval.
func (w *NotifyWorker) SetPollInterval(d time.Duration) {
	if d > 0 {
		w.pollInterval = d
	}
}

// SetBatchSize overrides how many tasks one poll picks up.
func (w *NotifyWorker) SetBatchSize(n int) {
	if n > 0 {
		w.batchSize = n
	}
}

// Start launches main loop; stops when ctx is done.
func (w *NotifyWorker) Start(ctx context.Context) {
	w.logger.Printf("notify_worker: started")
	defer w.logger.Printf("notify_worker: stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		tasks, err := w.repo.PendingNotifyTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Printf("notify_worker: fetch pending: %v", err)
			time.Sleep(w.pollInterval)
			continue
		}
		if len(tasks) == 0 {
			time.Sleep(w.pollInterval)
			continue
		}

		for _, task := range tasks {
			w.processTask(ctx, task)
		}
	}
}

func (w *NotifyWorker) processTask(ctx context.Context, task *models.NotifyTask) {
	notification, err := w.repo.GetNotification(ctx, task.NotificationID)
	if err != nil {
		w.failTask(ctx, task, fmt.Errorf("load notification: %w", err))
		return
	}

	if err := w.sender.Send(ctx, task.Recipient, notification.Title, notification.Message); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.repo.UpdateNotifyTaskStatus(ctx, task.ID, models.TaskCompleted, "", nil); err != nil {
		w.logger.Printf("notify_worker: mark completed %d: %v", task.ID, err)
	}
}

func (w *NotifyWorker) retryOrFail(ctx context.Context, task *models.NotifyTask, cause error) {
	attempt := task.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		w.failTask(ctx, task, cause)
		return
	}

	nextDelay := w.retryPolicy.NextDelay(attempt)
	nextTime := time.Now().Add(nextDelay)
	if err := w.repo.UpdateNotifyTaskStatus(ctx, task.ID, models.TaskPending, cause.Error(), &nextTime); err != nil {
		w.logger.Printf("notify_worker: mark retry %d: %v", task.ID, err)
	}
}

func (w *NotifyWorker) failTask(ctx context.Context, task *models.NotifyTask, cause error) {
	if err := w.repo.UpdateNotifyTaskStatus(ctx, task.ID, models.TaskFailed, cause.Error(), nil); err != nil {
		w.logger.Printf("notify_worker: mark failed %d: %v", task.ID, err)
	}
}
