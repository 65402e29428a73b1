package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Jhoe24/maintenance-tracker/internal/config"
	"github.com/Jhoe24/maintenance-tracker/internal/domain"
	"github.com/Jhoe24/maintenance-tracker/internal/mail"
)

type stubSender struct {
	mu    sync.Mutex
	fail  error
	calls int
}

func (s *stubSender) Send(mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.fail
}

func (s *stubSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type memQueue struct {
	mu   sync.Mutex
	rows []domain.QueuedEmail
}

func (q *memQueue) Create(_ context.Context, row *domain.QueuedEmail) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	row.ID = fmt.Sprintf("q-%d", len(q.rows)+1)
	row.CreatedAt = time.Now().UTC()
	q.rows = append(q.rows, *row)
	return nil
}

func (q *memQueue) DueBatch(_ context.Context, now time.Time, maxAttempts, limit int) ([]domain.QueuedEmail, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var due []domain.QueuedEmail
	for _, row := range q.rows {
		if row.Sent || row.Attempts >= maxAttempts {
			continue
		}
		if row.SendAfter != nil && row.SendAfter.After(now) {
			continue
		}
		due = append(due, row)
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (q *memQueue) Update(_ context.Context, row *domain.QueuedEmail) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.rows {
		if q.rows[i].ID == row.ID {
			q.rows[i] = *row
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (q *memQueue) get(id string) domain.QueuedEmail {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, row := range q.rows {
		if row.ID == id {
			return row
		}
	}
	return domain.QueuedEmail{}
}

func (q *memQueue) setSendAfter(id string, at time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.rows {
		if q.rows[i].ID == id {
			q.rows[i].SendAfter = &at
		}
	}
}

func seedQueued(t *testing.T, q *memQueue, attempts int) string {
	t.Helper()
	row := &domain.QueuedEmail{
		To:       []string{"maria@uni.edu"},
		Subject:  "Equipo listo para retirar - FE-2026-A1B2C3",
		BodyText: "su equipo está listo",
	}
	require.NoError(t, q.Create(context.Background(), row))
	if attempts > 0 {
		row.Attempts = attempts
		require.NoError(t, q.Update(context.Background(), row))
	}
	return row.ID
}

func workerConfig() config.WorkerConfig {
	return config.WorkerConfig{Enabled: true, LoopSleepSeconds: 1, Batch: 10, MaxAttempts: 6}
}

func TestCycleMarksSent(t *testing.T) {
	queue := &memQueue{}
	sender := &stubSender{}
	id := seedQueued(t, queue, 0)

	w := NewEmailRetryWorker(queue, sender, zap.NewNop(), workerConfig())
	w.Cycle(context.Background())

	row := queue.get(id)
	assert.True(t, row.Sent)
	assert.Equal(t, 1, row.Attempts)
	require.NotNil(t, row.SentAt)
	assert.Empty(t, row.LastError)
}

func TestCycleBacksOffFailedSend(t *testing.T) {
	queue := &memQueue{}
	sender := &stubSender{fail: errors.New("connection refused")}
	id := seedQueued(t, queue, 0)

	before := time.Now().UTC()
	w := NewEmailRetryWorker(queue, sender, zap.NewNop(), workerConfig())
	w.Cycle(context.Background())

	row := queue.get(id)
	assert.False(t, row.Sent)
	assert.Equal(t, 1, row.Attempts)
	assert.Equal(t, "connection refused", row.LastError)

	// First retry waits 2^1 minutes.
	require.NotNil(t, row.SendAfter)
	assert.WithinDuration(t, before.Add(2*time.Minute), *row.SendAfter, 5*time.Second)

	// The row is not due again until its backoff elapses.
	w.Cycle(context.Background())
	assert.Equal(t, 1, sender.callCount())
}

func TestCycleSkipsExhaustedRows(t *testing.T) {
	queue := &memQueue{}
	sender := &stubSender{fail: errors.New("connection refused")}
	id := seedQueued(t, queue, 5)

	w := NewEmailRetryWorker(queue, sender, zap.NewNop(), workerConfig())
	w.Cycle(context.Background())

	row := queue.get(id)
	assert.Equal(t, 6, row.Attempts)
	assert.False(t, row.Sent)

	// Even with the backoff elapsed, an exhausted row stays behind.
	queue.setSendAfter(id, time.Now().UTC().Add(-time.Minute))
	w.Cycle(context.Background())
	assert.Equal(t, 1, sender.callCount())
	assert.Equal(t, 6, queue.get(id).Attempts)
}

func TestCycleProcessesOldestFirst(t *testing.T) {
	queue := &memQueue{}
	sender := &stubSender{}
	first := seedQueued(t, queue, 0)
	second := seedQueued(t, queue, 0)

	cfg := workerConfig()
	cfg.Batch = 1
	w := NewEmailRetryWorker(queue, sender, zap.NewNop(), cfg)
	w.Cycle(context.Background())

	assert.True(t, queue.get(first).Sent)
	assert.False(t, queue.get(second).Sent)

	w.Cycle(context.Background())
	assert.True(t, queue.get(second).Sent)
}

func TestStartStop(t *testing.T) {
	queue := &memQueue{}
	sender := &stubSender{}
	seedQueued(t, queue, 0)

	ctx, cancel := context.WithCancel(context.Background())
	w := NewEmailRetryWorker(queue, sender, zap.NewNop(), workerConfig())
	w.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}

	// The first cycle runs before the loop waits on its interval.
	assert.GreaterOrEqual(t, sender.callCount(), 1)
}
