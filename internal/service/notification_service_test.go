package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Jhoe24/maintenance-tracker/internal/domain"
	"github.com/Jhoe24/maintenance-tracker/internal/events"
	"github.com/Jhoe24/maintenance-tracker/internal/mail"
)

type fakeSender struct {
	mu   sync.Mutex
	fail error
	sent []mail.Message
}

func (f *fakeSender) Send(msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeQueue struct {
	mu   sync.Mutex
	rows []domain.QueuedEmail
}

func (f *fakeQueue) Create(_ context.Context, q *domain.QueuedEmail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q.ID = fmt.Sprintf("q-%d", len(f.rows)+1)
	q.CreatedAt = time.Now().UTC()
	f.rows = append(f.rows, *q)
	return nil
}

func (f *fakeQueue) DueBatch(_ context.Context, now time.Time, maxAttempts, limit int) ([]domain.QueuedEmail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []domain.QueuedEmail
	for _, row := range f.rows {
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

func (f *fakeQueue) Update(_ context.Context, q *domain.QueuedEmail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == q.ID {
			f.rows[i] = *q
			return nil
		}
	}
	return pgx.ErrNoRows
}

func advancedEvent(status domain.TrackingStatus, email string) events.Event {
	return events.Event{
		ID:       "ev-1",
		Type:     events.EventTrackingAdvanced,
		TicketID: "t-1",
		Payload: events.TrackingAdvancedPayload{
			Folio:         "FE-2026-A1B2C3",
			EquipmentName: "laptop Lenovo T14 (LAB-0042)",
			Status:        status,
			Progress:      domain.ProgressFor(status),
			Description:   "nota del técnico",
			ClientName:    "María González",
			ClientEmail:   email,
			ClientCedula:  "V-12345678",
		},
	}
}

func TestNotificationSendsMappedStatus(t *testing.T) {
	sender := &fakeSender{}
	queue := &fakeQueue{}
	svc := NewNotificationService(nil, sender, queue, zap.NewNop())

	err := svc.HandleTrackingAdvanced(context.Background(), advancedEvent(domain.TrackingListo, "maria@uni.edu"))
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, []string{"maria@uni.edu"}, msg.To)
	assert.Contains(t, msg.Subject, "FE-2026-A1B2C3")
	assert.Contains(t, msg.BodyText, "María González")
	assert.True(t, strings.Contains(msg.BodyHTML, "listo para retirar"))
	assert.Empty(t, queue.rows)
}

func TestNotificationQueuesFailedSend(t *testing.T) {
	sender := &fakeSender{fail: errors.New("smtp unavailable")}
	queue := &fakeQueue{}
	svc := NewNotificationService(nil, sender, queue, zap.NewNop())

	err := svc.HandleTrackingAdvanced(context.Background(), advancedEvent(domain.TrackingRecepcion, "maria@uni.edu"))
	require.NoError(t, err)

	require.Len(t, queue.rows, 1)
	row := queue.rows[0]
	assert.Equal(t, []string{"maria@uni.edu"}, row.To)
	assert.Contains(t, row.Subject, "FE-2026-A1B2C3")
	assert.Equal(t, 0, row.Attempts)
	assert.False(t, row.Sent)
	assert.Equal(t, "smtp unavailable", row.LastError)
	assert.Nil(t, row.SendAfter)
}

func TestNotificationSkipsUnmappedStatus(t *testing.T) {
	sender := &fakeSender{}
	queue := &fakeQueue{}
	svc := NewNotificationService(nil, sender, queue, zap.NewNop())

	for _, status := range []domain.TrackingStatus{domain.TrackingReparacion, domain.TrackingPruebas} {
		err := svc.HandleTrackingAdvanced(context.Background(), advancedEvent(status, "maria@uni.edu"))
		require.NoError(t, err)
	}

	assert.Empty(t, sender.sent)
	assert.Empty(t, queue.rows)
}

func TestNotificationSkipsMissingEmail(t *testing.T) {
	sender := &fakeSender{}
	queue := &fakeQueue{}
	svc := NewNotificationService(nil, sender, queue, zap.NewNop())

	err := svc.HandleTrackingAdvanced(context.Background(), advancedEvent(domain.TrackingListo, ""))
	require.NoError(t, err)

	assert.Empty(t, sender.sent)
	assert.Empty(t, queue.rows)
}

func TestNotificationSubscribesToDispatcher(t *testing.T) {
	sender := &fakeSender{}
	queue := &fakeQueue{}
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(dispatcher, sender, queue, zap.NewNop())
	svc.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), advancedEvent(domain.TrackingEntregado, "maria@uni.edu"))
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Subject, "entregado")
}
