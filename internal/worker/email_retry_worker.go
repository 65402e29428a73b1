package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Jhoe24/maintenance-tracker/internal/config"
	"github.com/Jhoe24/maintenance-tracker/internal/domain"
	"github.com/Jhoe24/maintenance-tracker/internal/mail"
	"github.com/Jhoe24/maintenance-tracker/internal/repository"
)

// EmailRetryWorker drains the queued email table. One worker runs per
// process; it is started from main and stopped by cancelling its context.
// Delivery is at-least-once and best-effort: rows that exhaust the attempt
// limit stay behind unsent as failure records.
type EmailRetryWorker struct {
	queue       repository.QueuedEmailRepository
	sender      mail.Sender
	logger      *zap.Logger
	interval    time.Duration
	batch       int
	maxAttempts int
	done        chan struct{}
}

// NewEmailRetryWorker constructs the worker.
func NewEmailRetryWorker(queue repository.QueuedEmailRepository, sender mail.Sender, logger *zap.Logger, cfg config.WorkerConfig) *EmailRetryWorker {
	batch := cfg.Batch
	if batch <= 0 {
		batch = 10
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 6
	}
	return &EmailRetryWorker{
		queue:       queue,
		sender:      sender,
		logger:      logger,
		interval:    cfg.LoopSleep(),
		batch:       batch,
		maxAttempts: maxAttempts,
		done:        make(chan struct{}),
	}
}

// Start launches the retry loop.
func (w *EmailRetryWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop blocks until the loop has exited after its context was cancelled.
func (w *EmailRetryWorker) Stop() {
	<-w.done
}

func (w *EmailRetryWorker) run(ctx context.Context) {
	defer close(w.done)
	w.logger.Info("email retry worker started",
		zap.Duration("interval", w.interval),
		zap.Int("batch", w.batch),
		zap.Int("max_attempts", w.maxAttempts))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.Cycle(ctx)
		select {
		case <-ctx.Done():
			w.logger.Info("email retry worker stopping")
			return
		case <-ticker.C:
		}
	}
}

// Cycle processes one batch of due rows. Errors and panics are logged and
// swallowed so the loop keeps running.
func (w *EmailRetryWorker) Cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("retry cycle panic", zap.Any("panic", r))
		}
	}()

	batch, err := w.queue.DueBatch(ctx, time.Now().UTC(), w.maxAttempts, w.batch)
	if err != nil {
		w.logger.Error("selecting due emails failed", zap.Error(err))
		return
	}

	for i := range batch {
		w.deliver(ctx, &batch[i])
	}
}

func (w *EmailRetryWorker) deliver(ctx context.Context, q *domain.QueuedEmail) {
	err := w.sender.Send(mail.Message{
		To:       q.To,
		Subject:  q.Subject,
		BodyText: q.BodyText,
		BodyHTML: q.BodyHTML,
	})

	q.Attempts++
	now := time.Now().UTC()
	if err != nil {
		q.LastError = err.Error()
		retryAt := now.Add(domain.NextBackoff(q.Attempts))
		q.SendAfter = &retryAt
		if q.Attempts >= w.maxAttempts {
			w.logger.Error("queued email exhausted retries",
				zap.String("id", q.ID),
				zap.Int("attempts", q.Attempts),
				zap.String("last_error", q.LastError))
		}
	} else {
		q.Sent = true
		q.SentAt = &now
		q.LastError = ""
	}

	if uerr := w.queue.Update(ctx, q); uerr != nil {
		w.logger.Error("updating queued email failed",
			zap.Error(uerr), zap.String("id", q.ID))
	}
}
