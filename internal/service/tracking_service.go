package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Jhoe24/maintenance-tracker/internal/domain"
	"github.com/Jhoe24/maintenance-tracker/internal/events"
	"github.com/Jhoe24/maintenance-tracker/internal/repository"
	apperrors "github.com/Jhoe24/maintenance-tracker/pkg/util/errorutil"
)

const timelineCacheTTL = 60 * time.Second

// TrackingService coordinates workflow transitions and timeline reads.
type TrackingService struct {
	tickets    repository.TicketRepository
	tracking   repository.TrackingRepository
	cache      *redis.Client
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TrackingDependencies bundles collaborators for the tracking service.
type TrackingDependencies struct {
	TicketRepo   repository.TicketRepository
	TrackingRepo repository.TrackingRepository
	Cache        *redis.Client
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// NewTrackingService constructs the service.
func NewTrackingService(deps TrackingDependencies) *TrackingService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackingService{
		tickets:    deps.TicketRepo,
		tracking:   deps.TrackingRepo,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// AdvanceInput describes a transition submission.
type AdvanceInput struct {
	Status      string
	Title       string
	Description string
	Technician  string
	Author      string
	VideoURL    string
}

// Advance records a new stage for the ticket's tracking record. The whole
// read-modify-append-write runs inside one locked transaction; concurrent
// submissions for the same ticket serialize, and the second one is rejected
// with the duplicate-status error once the first commits.
func (s *TrackingService) Advance(ctx context.Context, ticketID string, input AdvanceInput) (*domain.TrackingRecord, *domain.TimelineEvent, error) {
	status := domain.NormalizeTrackingStatus(input.Status)
	if status == "" {
		return nil, nil, apperrors.NewValidationError("status requerido", nil)
	}

	ticket, rec, err := s.tracking.Advance(ctx, ticketID, func(t *domain.Ticket, r *domain.TrackingRecord) error {
		if r.HasStatus(status) {
			details := map[string]any{"status": status}
			msg := fmt.Sprintf("el estado %q ya está registrado en la línea de tiempo", status)
			if next, ok := r.NextUnusedStatus(); ok {
				details["siguiente"] = next
				msg = fmt.Sprintf("%s; el siguiente estado sugerido es %q", msg, next)
			}
			return apperrors.NewValidationError(msg, details)
		}

		progress := domain.ProgressFor(status)
		technician := input.Technician
		if technician == "" {
			technician = r.Technician
		}
		if technician == "" {
			technician = t.Technician
		}

		title := input.Title
		if title == "" {
			title = string(status)
		}

		r.Timeline = append(r.Timeline, domain.TimelineEvent{
			Timestamp:   time.Now().UTC(),
			Title:       title,
			Description: input.Description,
			Status:      status,
			Progress:    progress,
			Technician:  technician,
			Author:      input.Author,
			VideoURL:    input.VideoURL,
		})
		r.Status = status
		r.Progress = progress
		r.Technician = technician

		t.Technician = technician
		if ticketStatus, ok := domain.TicketStatusFor(status); ok {
			t.Status = ticketStatus
		}
		return nil
	})
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, nil, apperrors.MapError(err)
	}

	s.invalidateTimelines(ctx, ticket.ClientCedula)

	event := &rec.Timeline[len(rec.Timeline)-1]
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTrackingAdvanced,
		TicketID: ticket.ID,
		Payload: events.TrackingAdvancedPayload{
			Folio:         ticket.Folio,
			EquipmentName: ticket.EquipmentName(),
			Status:        rec.Status,
			Progress:      rec.Progress,
			Description:   event.Description,
			Technician:    rec.Technician,
			ClientName:    ticket.ClientFullName(),
			ClientEmail:   ticket.ClientEmail,
			ClientCedula:  ticket.ClientCedula,
		},
	})
	return rec, event, nil
}

// ClientTimeline is the read-only view of one ticket's progress.
type ClientTimeline struct {
	TicketID      string                 `json:"ticket_id"`
	Folio         string                 `json:"folio"`
	EquipmentName string                 `json:"equipment_name"`
	TicketStatus  domain.TicketStatus    `json:"ticket_status"`
	Status        domain.TrackingStatus  `json:"status,omitempty"`
	Progress      int                    `json:"progress"`
	Technician    string                 `json:"technician,omitempty"`
	Timeline      []domain.TimelineEvent `json:"timeline"`
}

// ClientTimelines returns every ticket for the cedula with its timeline,
// newest ticket first. Results are cached briefly.
func (s *TrackingService) ClientTimelines(ctx context.Context, cedula string) ([]ClientTimeline, error) {
	if cached, ok := s.cachedTimelines(ctx, cedula); ok {
		return cached, nil
	}

	tickets, err := s.tickets.ListByCedula(ctx, cedula)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	result := make([]ClientTimeline, 0, len(tickets))
	for i := range tickets {
		ticket := &tickets[i]
		view := ClientTimeline{
			TicketID:      ticket.ID,
			Folio:         ticket.Folio,
			EquipmentName: ticket.EquipmentName(),
			TicketStatus:  ticket.Status,
			Timeline:      []domain.TimelineEvent{},
		}
		rec, err := s.tracking.GetByTicket(ctx, ticket.ID)
		if err != nil && err != pgx.ErrNoRows {
			return nil, apperrors.MapError(err)
		}
		if rec != nil {
			view.Status = rec.Status
			view.Progress = rec.Progress
			view.Technician = rec.Technician
			view.Timeline = rec.Timeline
		}
		result = append(result, view)
	}

	s.storeTimelines(ctx, cedula, result)
	return result, nil
}

// TransitionFormData carries the state needed to render a transition form.
type TransitionFormData struct {
	Ticket        *domain.Ticket
	CurrentStatus domain.TrackingStatus
	NextStatus    domain.TrackingStatus
	HasNext       bool
	Options       []domain.TrackingStatus
}

// TransitionForm returns the data backing the transition form partial.
func (s *TrackingService) TransitionForm(ctx context.Context, ticketID string) (*TransitionFormData, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	rec, err := s.tracking.GetByTicket(ctx, ticketID)
	if err != nil && err != pgx.ErrNoRows {
		return nil, apperrors.MapError(err)
	}
	if rec == nil {
		rec = &domain.TrackingRecord{TicketID: ticketID}
	}

	data := &TransitionFormData{Ticket: ticket, CurrentStatus: rec.Status}
	data.NextStatus, data.HasNext = rec.NextUnusedStatus()
	for _, status := range domain.StatusSequence {
		if !rec.HasStatus(status) {
			data.Options = append(data.Options, status)
		}
	}
	return data, nil
}

func timelineCacheKey(cedula string) string {
	return "timelines:" + cedula
}

func (s *TrackingService) cachedTimelines(ctx context.Context, cedula string) ([]ClientTimeline, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, timelineCacheKey(cedula)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("timeline cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var result []ClientTimeline
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false
	}
	return result, true
}

func (s *TrackingService) storeTimelines(ctx context.Context, cedula string, views []ClientTimeline) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(views)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, timelineCacheKey(cedula), string(raw), timelineCacheTTL).Err(); err != nil {
		s.logger.Warn("timeline cache write failed", zap.Error(err))
	}
}

func (s *TrackingService) invalidateTimelines(ctx context.Context, cedula string) {
	if s.cache == nil || cedula == "" {
		return
	}
	if err := s.cache.Del(ctx, timelineCacheKey(cedula)).Err(); err != nil {
		s.logger.Warn("timeline cache invalidation failed", zap.Error(err))
	}
}

func (s *TrackingService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
