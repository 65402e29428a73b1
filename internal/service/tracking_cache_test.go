package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jhoe24/maintenance-tracker/internal/domain"
)

func TestClientTimelinesCacheHit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := newMemStore()
	svc := NewTrackingService(TrackingDependencies{
		TicketRepo:   store,
		TrackingRepo: store,
		Cache:        rdb,
	})

	cached := []ClientTimeline{{
		TicketID:      "t-9",
		Folio:         "FE-2026-CACHED",
		EquipmentName: "laptop Lenovo T14 (LAB-0042)",
		TicketStatus:  domain.TicketStatusRecibido,
		Status:        domain.TrackingRecepcion,
		Progress:      5,
		Timeline:      []domain.TimelineEvent{},
	}}
	raw, err := json.Marshal(cached)
	require.NoError(t, err)
	mock.ExpectGet("timelines:V-12345678").SetVal(string(raw))

	// The store holds no tickets, so any result must come from the cache.
	views, err := svc.ClientTimelines(context.Background(), "V-12345678")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "FE-2026-CACHED", views[0].Folio)
	assert.Equal(t, 5, views[0].Progress)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientTimelinesCacheMiss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := newMemStore()
	svc := NewTrackingService(TrackingDependencies{
		TicketRepo:   store,
		TrackingRepo: store,
		Cache:        rdb,
	})

	ticket := &domain.Ticket{
		Folio:         "FE-2026-A1B2C3",
		EquipmentCode: "LAB-0042",
		EquipmentType: domain.EquipmentLaptop,
		ClientCedula:  "V-12345678",
		Status:        domain.TicketStatusRecibido,
	}
	require.NoError(t, store.Create(context.Background(), ticket))

	mock.ExpectGet("timelines:V-12345678").RedisNil()
	mock.Regexp().ExpectSet("timelines:V-12345678", `.*FE-2026-A1B2C3.*`, timelineCacheTTL).SetVal("OK")

	views, err := svc.ClientTimelines(context.Background(), "V-12345678")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "FE-2026-A1B2C3", views[0].Folio)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceInvalidatesTimelineCache(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := newMemStore()
	svc := NewTrackingService(TrackingDependencies{
		TicketRepo:   store,
		TrackingRepo: store,
		Cache:        rdb,
	})

	ticket := &domain.Ticket{
		Folio:         "FE-2026-A1B2C3",
		EquipmentCode: "LAB-0042",
		EquipmentType: domain.EquipmentLaptop,
		ClientCedula:  "V-12345678",
		Status:        domain.TicketStatusRecibido,
	}
	require.NoError(t, store.Create(context.Background(), ticket))

	mock.ExpectDel("timelines:V-12345678").SetVal(1)

	_, _, err := svc.Advance(context.Background(), ticket.ID, AdvanceInput{Status: "recepcion"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
